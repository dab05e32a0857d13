// Package download runs the fetch-and-convert pipeline that brings
// arXiv papers into local storage.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
	"github.com/Laisky/arxiv-mcp/library/log"
)

const (
	// waitPollInterval paces Wait's registry checks.
	waitPollInterval = 50 * time.Millisecond
	// maxBatchConcurrency caps parallel downloads in a batch.
	maxBatchConcurrency = 8
)

// Fetcher is the arXiv surface the service needs.
type Fetcher interface {
	Get(ctx context.Context, paperID string) (*arxiv.Paper, error)
	DownloadPDF(ctx context.Context, pdfURL string) (io.ReadCloser, error)
}

// Mirror receives a copy of every downloaded pdf.
type Mirror interface {
	Put(ctx context.Context, paperID string, r io.Reader, size int64) error
}

// Indexer is told about every paper whose markdown landed on disk, so
// the semantic index stays current without a separate crawl.
type Indexer interface {
	IndexPaper(ctx context.Context, paperID string) (int, error)
}

// Service downloads papers, indexes them, and converts them to
// markdown in the background.
type Service struct {
	fetcher   Fetcher
	files     *storage.Files
	papers    *storage.Papers
	converter Converter
	mirror    Mirror
	indexer   Indexer
	reg       *registry
	logger    logSDK.Logger
	clock     func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*Service) error

// WithConverter replaces the default metadata converter.
func WithConverter(conv Converter) ServiceOption {
	return func(s *Service) error {
		if conv == nil {
			return errors.New("converter cannot be nil")
		}
		s.converter = conv
		return nil
	}
}

// WithMirror copies downloaded pdfs into an s3 bucket.
func WithMirror(mirror Mirror) ServiceOption {
	return func(s *Service) error {
		s.mirror = mirror
		return nil
	}
}

// WithIndexer feeds finished conversions into a search index. Indexing
// failures are logged, not surfaced; the paper itself is already
// usable.
func WithIndexer(indexer Indexer) ServiceOption {
	return func(s *Service) error {
		s.indexer = indexer
		return nil
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger logSDK.Logger) ServiceOption {
	return func(s *Service) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithClock overrides the time source for job timestamps.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		s.clock = clock
		return nil
	}
}

// NewService wires the download pipeline.
func NewService(fetcher Fetcher, files *storage.Files, papers *storage.Papers,
	opts ...ServiceOption) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if files == nil {
		return nil, errors.New("files cannot be nil")
	}
	if papers == nil {
		return nil, errors.New("papers cannot be nil")
	}

	s := &Service{
		fetcher: fetcher,
		files:   files,
		papers:  papers,
		reg:     newRegistry(),
		logger:  log.Logger.Named("download"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if s.converter == nil {
		s.converter = NewMetadataConverter(files)
	}

	return s, nil
}

// Start downloads one paper. When the markdown is already stored it
// answers with a finished placeholder job; when a job for the paper is
// still running it returns that job. Otherwise it fetches metadata and
// the pdf synchronously, then converts in the background. The created
// flag is true only for a freshly spawned job.
func (s *Service) Start(ctx context.Context, paperID string) (job Job, created bool, err error) {
	if err := storage.ValidateID(paperID); err != nil {
		return Job{}, false, errors.WithStack(err)
	}

	if s.files.HasMarkdown(paperID) {
		return Job{PaperID: paperID, State: StateSuccess}, false, nil
	}

	job, created = s.reg.beginOrActive(paperID, s.clock().UTC())
	if !created {
		return job, false, nil
	}

	logger := s.logger.Named("job")
	logger.Info("download started",
		zap.String("paper_id", paperID), zap.String("job_id", job.ID))

	paper, err := s.fetcher.Get(ctx, paperID)
	if err != nil {
		s.reg.fail(paperID, err, s.clock().UTC())
		if errors.Is(err, arxiv.ErrNotFound) {
			return Job{}, true, errors.Wrapf(err, "paper %s not found on arXiv", paperID)
		}
		return Job{}, true, errors.Wrapf(err, "fetch metadata for %s", paperID)
	}

	pdfPath, size, err := s.fetchPDF(ctx, paperID, paper)
	if err != nil {
		s.reg.fail(paperID, err, s.clock().UTC())
		return Job{}, true, errors.WithStack(err)
	}

	if err := s.papers.Upsert(ctx, &storage.PaperRecord{
		ID:           paperID,
		Title:        paper.Title,
		Authors:      paper.Authors,
		Abstract:     paper.Abstract,
		Categories:   paper.Categories,
		Published:    paper.Published,
		DownloadedAt: s.clock().UTC(),
		PDFPath:      pdfPath,
	}); err != nil {
		s.reg.fail(paperID, err, s.clock().UTC())
		return Job{}, true, errors.Wrapf(err, "index paper %s", paperID)
	}

	s.mirrorPDF(ctx, paperID, pdfPath, size)

	s.reg.setState(paperID, StateConverting)
	logger.Info("pdf stored, converting",
		zap.String("paper_id", paperID), zap.Int64("bytes", size))

	// The conversion outlives the request; keep ctx values (logger)
	// but drop its cancellation.
	go s.runConversion(context.WithoutCancel(ctx), paperID, paper, pdfPath)

	job, _ = s.reg.get(paperID)
	return job, true, nil
}

// fetchPDF streams the paper's pdf to disk.
func (s *Service) fetchPDF(ctx context.Context, paperID string, paper *arxiv.Paper) (string, int64, error) {
	body, err := s.fetcher.DownloadPDF(ctx, paper.PDFURL)
	if err != nil {
		return "", 0, errors.Wrapf(err, "download pdf for %s", paperID)
	}
	defer body.Close()

	path, size, err := s.files.WritePDF(paperID, body)
	if err != nil {
		return "", 0, errors.Wrapf(err, "store pdf for %s", paperID)
	}

	return path, size, nil
}

// mirrorPDF copies the stored pdf to the s3 mirror, swallowing
// failures so a broken mirror never fails a download.
func (s *Service) mirrorPDF(ctx context.Context, paperID, pdfPath string, size int64) {
	if s.mirror == nil {
		return
	}

	var pool errgroup.Group
	pool.Go(func() error {
		fp, err := os.Open(pdfPath)
		if err != nil {
			s.logger.Warn("open pdf for mirror", zap.Error(err),
				zap.String("paper_id", paperID))
			return nil
		}
		defer fp.Close()

		if err := s.mirror.Put(ctx, paperID, fp, size); err != nil {
			s.logger.Warn("mirror pdf", zap.Error(err),
				zap.String("paper_id", paperID))
		}
		return nil
	})
	_ = pool.Wait()
}

// runConversion finishes a job in the background.
func (s *Service) runConversion(ctx context.Context,
	paperID string, paper *arxiv.Paper, pdfPath string) {
	logger := s.logger.Named("convert")

	mdPath, err := s.converter.Convert(ctx, paperID, paper, pdfPath)
	if err != nil {
		s.reg.fail(paperID, err, s.clock().UTC())
		logger.Warn("conversion failed", zap.Error(err),
			zap.String("paper_id", paperID))
		return
	}

	if err := s.papers.Upsert(ctx, &storage.PaperRecord{
		ID:           paperID,
		Title:        paper.Title,
		Authors:      paper.Authors,
		Abstract:     paper.Abstract,
		Categories:   paper.Categories,
		Published:    paper.Published,
		DownloadedAt: s.clock().UTC(),
		PDFPath:      pdfPath,
		MarkdownPath: mdPath,
	}); err != nil {
		s.reg.fail(paperID, err, s.clock().UTC())
		logger.Warn("index converted paper", zap.Error(err),
			zap.String("paper_id", paperID))
		return
	}

	s.reg.succeed(paperID, s.clock().UTC())
	logger.Info("paper ready",
		zap.String("paper_id", paperID), zap.String("md_path", mdPath))

	if s.indexer != nil {
		chunks, err := s.indexer.IndexPaper(ctx, paperID)
		if err != nil {
			logger.Warn("index paper for search", zap.Error(err),
				zap.String("paper_id", paperID))
			return
		}
		logger.Debug("paper indexed for search",
			zap.String("paper_id", paperID), zap.Int("chunks", chunks))
	}
}

// Wait blocks until the paper's job reaches a terminal state.
func (s *Service) Wait(ctx context.Context, paperID string) (Job, error) {
	for {
		job, ok := s.reg.get(paperID)
		if !ok {
			return Job{}, errors.Errorf("no job for paper %s", paperID)
		}
		if job.State.terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, errors.Wrap(ctx.Err(), "wait for download")
		case <-time.After(waitPollInterval):
		}
	}
}

// StatusReport is the answer to a status check.
type StatusReport struct {
	PaperID     string     `json:"paper_id"`
	Status      string     `json:"status"`
	Message     string     `json:"message"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	ResourceURI string     `json:"resource_uri,omitempty"`
}

// Status reports the paper's download state. A paper without a job
// still answers success when its markdown is on disk, and unknown
// otherwise.
func (s *Service) Status(paperID string) StatusReport {
	if job, ok := s.reg.get(paperID); ok {
		report := StatusReport{
			PaperID: paperID,
			Status:  string(job.State),
			Message: fmt.Sprintf("Paper conversion %s", job.State),
			Error:   job.Error,
		}
		if !job.StartedAt.IsZero() {
			startedAt := job.StartedAt
			report.StartedAt = &startedAt
		}
		if !job.CompletedAt.IsZero() {
			completedAt := job.CompletedAt
			report.CompletedAt = &completedAt
		}
		return report
	}

	if s.files.HasMarkdown(paperID) {
		path, _ := s.files.MarkdownPath(paperID)
		return StatusReport{
			PaperID:     paperID,
			Status:      string(StateSuccess),
			Message:     "Paper is ready",
			ResourceURI: "file://" + path,
		}
	}

	return StatusReport{
		PaperID: paperID,
		Status:  "unknown",
		Message: "No download or conversion in progress",
	}
}

// Jobs returns a snapshot of all known jobs.
func (s *Service) Jobs() []Job {
	return s.reg.snapshot()
}

// ActiveJobs counts downloads that have not finished yet.
func (s *Service) ActiveJobs() int {
	return s.reg.activeCount()
}

// BatchResult is one paper's outcome within a batch download.
type BatchResult struct {
	PaperID string `json:"paper_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"file_path,omitempty"`
}

// Batch downloads many papers with bounded concurrency and waits for
// every job to finish. Papers whose markdown is already stored are
// skipped.
func (s *Service) Batch(ctx context.Context, paperIDs []string, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = min(runtime.NumCPU()*2, maxBatchConcurrency)
	}

	results := make([]BatchResult, len(paperIDs))
	var pool errgroup.Group
	pool.SetLimit(concurrency)

	for i, paperID := range paperIDs {
		pool.Go(func() error {
			results[i] = s.downloadOne(ctx, paperID)
			return nil
		})
	}
	_ = pool.Wait()

	return results
}

func (s *Service) downloadOne(ctx context.Context, paperID string) BatchResult {
	result := BatchResult{PaperID: paperID}

	if s.files.HasMarkdown(paperID) {
		path, _ := s.files.MarkdownPath(paperID)
		result.Status = "skipped"
		result.Message = "Already downloaded"
		result.Path = path
		return result
	}

	job, created, err := s.Start(ctx, paperID)
	if err != nil {
		result.Status = "failed"
		result.Message = err.Error()
		return result
	}

	// A placeholder job means the markdown landed between the check
	// above and Start.
	if !created && job.ID == "" {
		path, _ := s.files.MarkdownPath(paperID)
		result.Status = "skipped"
		result.Message = "Already downloaded"
		result.Path = path
		return result
	}

	job, err = s.Wait(ctx, paperID)
	if err != nil {
		result.Status = "failed"
		result.Message = err.Error()
		return result
	}

	if job.State == StateError {
		result.Status = "failed"
		result.Message = job.Error
		return result
	}

	path, _ := s.files.MarkdownPath(paperID)
	result.Status = "success"
	result.Message = "Downloaded successfully"
	result.Path = path
	return result
}
