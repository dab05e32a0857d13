package search

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/arxiv-mcp/library/arxiv"
)

const (
	defaultRequestResults = 10
	defaultResultsLimit   = 50
)

// Request carries one caller-facing search invocation before
// normalization.
type Request struct {
	Query      string
	MaxResults int
	Categories []string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Service turns raw requests into resolved searches against the arXiv
// API, applying the widening cascade when the literal query finds
// nothing.
type Service struct {
	client       *arxiv.Client
	resultsLimit int
	resolverOpts []ResolverOption
}

// ServiceOption mutates a Service during construction.
type ServiceOption func(*Service)

// WithResultsLimit caps the per-request max_results a caller may ask
// for. Values below one keep the default.
func WithResultsLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.resultsLimit = limit
		}
	}
}

// WithResolverOptions forwards options to every resolver the service
// builds.
func WithResolverOptions(opts ...ResolverOption) ServiceOption {
	return func(s *Service) {
		s.resolverOpts = append(s.resolverOpts, opts...)
	}
}

// NewService returns a search service backed by the given API client.
func NewService(client *arxiv.Client, opts ...ServiceOption) (*Service, error) {
	if client == nil {
		return nil, errors.New("arxiv client is required")
	}

	svc := &Service{
		client:       client,
		resultsLimit: defaultResultsLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ResultsLimit reports the per-request cap applied to max_results.
func (s *Service) ResultsLimit() int {
	return s.resultsLimit
}

// Search normalizes the request, runs the widening cascade and returns
// the resolution. ErrEmptyQuery is returned when the query contains no
// usable text at all.
func (s *Service) Search(ctx context.Context, req Request) (*Resolution, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultRequestResults
	}
	maxResults = min(maxResults, s.resultsLimit)

	executor := NewArxivExecutor(s.client, maxResults, req.Categories, req.DateFrom, req.DateTo)
	resolver, err := NewResolver(executor, s.resolverOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "build resolver")
	}

	query := Normalize(req.Query, req.DateFrom, req.DateTo)
	resolution, err := resolver.Resolve(ctx, query)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return resolution, nil
}
