// Package arxiv implements a client for the arXiv export API, including
// the courtesy rate limiting and retry behaviour the API asks for.
package arxiv

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	appLog "github.com/Laisky/arxiv-mcp/library/log"
)

const (
	defaultEndpoint   = "https://export.arxiv.org/api/query"
	defaultPageSize   = 100
	defaultMaxResults = 10
	defaultRetries    = 3
	// requestDelay spaces API calls out; arXiv asks clients to wait
	// between requests.
	requestDelay       = 500 * time.Millisecond
	httpRequestTimeout = 60 * time.Second
	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit = 4096
)

// ErrNotFound reports that the index has no entry for the requested id.
var ErrNotFound = errors.New("paper not found")

// SortCriterion selects the index-side ordering of results.
type SortCriterion string

const (
	SortRelevance     SortCriterion = "relevance"
	SortLastUpdated   SortCriterion = "lastUpdatedDate"
	SortSubmittedDate SortCriterion = "submittedDate"
)

// SortOrder selects the direction of the chosen ordering.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// SearchParams describes one API query.
type SearchParams struct {
	Query string
	// Categories narrow the query to the given archive categories,
	// composed as (query) AND (cat:a OR cat:b).
	Categories []string
	Start      int
	MaxResults int
	SortBy     SortCriterion
	SortOrder  SortOrder
	// DateFrom/DateTo filter on the published date. The API has no date
	// parameter, so the filter is applied client side; the fetch size is
	// doubled to compensate for entries the filter drops.
	DateFrom *time.Time
	DateTo   *time.Time
}

func (p SearchParams) hasDateFilter() bool {
	return p.DateFrom != nil || p.DateTo != nil
}

// ClientOption customises a Client during construction.
type ClientOption func(*Client)

// WithEndpoint overrides the API endpoint, primarily for testing.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithPageSize caps how many entries one API call may request.
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithRequestDelay adjusts the courtesy delay between API calls.
func WithRequestDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		if delay > 0 {
			c.limiter = rate.NewLimiter(rate.Every(delay), 1)
		}
	}
}

// WithRetries adjusts how many attempts each API call gets.
func WithRetries(retries uint) ClientOption {
	return func(c *Client) {
		if retries > 0 {
			c.retries = retries
		}
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger logSDK.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the arXiv export API.
type Client struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	pageSize int
	retries  uint
	logger   logSDK.Logger
}

// NewClient builds a Client with the API's recommended pacing defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: httpRequestTimeout},
		limiter:  rate.NewLimiter(rate.Every(requestDelay), 1),
		pageSize: defaultPageSize,
		retries:  defaultRetries,
		logger:   appLog.Logger.Named("arxiv_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Search runs one query against the index and returns the parsed,
// date-filtered result page.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, errors.New("arxiv query cannot be empty")
	}
	query = composeQuery(query, params.Categories)

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	fetchCount := maxResults
	if params.hasDateFilter() {
		fetchCount *= 2
	}
	if fetchCount > c.pageSize {
		fetchCount = c.pageSize
	}

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = SortSubmittedDate
	}
	sortOrder := params.SortOrder
	if sortOrder == "" {
		sortOrder = SortDescending
	}

	values := url.Values{}
	values.Set("search_query", query)
	values.Set("start", strconv.Itoa(params.Start))
	values.Set("max_results", strconv.Itoa(fetchCount))
	values.Set("sortBy", string(sortBy))
	values.Set("sortOrder", string(sortOrder))

	feed, err := c.fetchFeed(ctx, values)
	if err != nil {
		return nil, errors.Wrapf(err, "search %q", query)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper := entry.toPaper()
		if !withinDateRange(paper.Published, params.DateFrom, params.DateTo) {
			continue
		}
		papers = append(papers, paper)
		if len(papers) >= maxResults {
			break
		}
	}

	return &SearchResult{
		TotalResults: feed.TotalResults,
		StartIndex:   feed.StartIndex,
		ItemsPerPage: feed.ItemsPerPage,
		Papers:       papers,
	}, nil
}

// Ping probes the API with a one-result query so health checks can
// report whether the index answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, SearchParams{Query: "test", MaxResults: 1})
	return errors.WithStack(err)
}

// Get fetches a single paper by its short id, such as 2401.12345v1.
func (c *Client) Get(ctx context.Context, paperID string) (*Paper, error) {
	id := strings.TrimSpace(paperID)
	if id == "" {
		return nil, errors.New("paper id cannot be empty")
	}

	values := url.Values{}
	values.Set("id_list", id)
	values.Set("max_results", "1")

	feed, err := c.fetchFeed(ctx, values)
	if err != nil {
		return nil, errors.Wrapf(err, "get paper %q", id)
	}
	if len(feed.Entries) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "paper %q", id)
	}

	// The API answers unknown ids with a placeholder entry that has no
	// short id.
	paper := feed.Entries[0].toPaper()
	if paper.ID == "" || strings.HasPrefix(paper.ID, "http") {
		return nil, errors.Wrapf(ErrNotFound, "paper %q", id)
	}

	return &paper, nil
}

// DownloadPDF opens a stream for the paper's PDF. The caller owns the
// returned reader and must close it.
func (c *Client) DownloadPDF(ctx context.Context, pdfURL string) (io.ReadCloser, error) {
	if strings.TrimSpace(pdfURL) == "" {
		return nil, errors.New("pdf url cannot be empty")
	}

	var body io.ReadCloser
	err := retry.Do(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "wait rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
		if err != nil {
			return errors.Wrapf(err, "create request to %q", pdfURL)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return errors.Wrap(err, "send request")
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return errors.Errorf("pdf download returned status %d", resp.StatusCode)
		}

		body = resp.Body
		return nil
	},
		retry.Attempts(c.retries),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "download pdf %q", pdfURL)
	}

	return body, nil
}

func (c *Client) fetchFeed(ctx context.Context, values url.Values) (*atomFeed, error) {
	requestURL := c.endpoint + "?" + values.Encode()

	var feed *atomFeed
	err := retry.Do(func() error {
		var fetchErr error
		feed, fetchErr = c.fetchOnce(ctx, requestURL)
		return fetchErr
	},
		retry.Attempts(c.retries),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	return feed, nil
}

func (c *Client) fetchOnce(ctx context.Context, requestURL string) (*atomFeed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create request to %q", requestURL)
	}

	logger := c.logger
	if logger == nil {
		logger = appLog.Logger.Named("arxiv_client")
	}

	logger.Debug("outgoing http request",
		zap.String("method", req.Method),
		zap.String("url", requestURL),
	)

	startAt := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	truncatedBody, truncated := truncateForLog(body, logBodyLimit)
	logger.Debug("incoming http response",
		zap.String("url", requestURL),
		zap.Int("status", resp.StatusCode),
		zap.Bool("body_truncated", truncated),
		zap.Duration("cost", time.Since(startAt)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("arxiv api returned status %d: %s", resp.StatusCode, truncatedBody)
	}

	feed := new(atomFeed)
	if err := xml.Unmarshal(body, feed); err != nil {
		return nil, errors.Wrap(err, "unmarshal atom feed")
	}

	return feed, nil
}

func composeQuery(query string, categories []string) string {
	cleaned := make([]string, 0, len(categories))
	for _, category := range categories {
		category = strings.TrimSpace(category)
		if category != "" {
			cleaned = append(cleaned, "cat:"+category)
		}
	}
	if len(cleaned) == 0 {
		return query
	}
	return "(" + query + ") AND (" + strings.Join(cleaned, " OR ") + ")"
}

func withinDateRange(date time.Time, from, to *time.Time) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}

func truncateForLog(body []byte, limit int) (string, bool) {
	if len(body) <= limit {
		return string(body), false
	}
	return string(body[:limit]), true
}
