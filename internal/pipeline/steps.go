package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/quotecrawl/internal/crawler"
	"github.com/nao1215/quotecrawl/internal/metrics"
	"github.com/nao1215/quotecrawl/internal/model"
)

// ErrNoSpider is returned by CrawlStep when it was built without a spider.
var ErrNoSpider = errors.New("crawl step has no spider")

// CrawlStep runs the fetch loop for the report's seed.
type CrawlStep struct {
	spider *crawler.Spider
}

// NewCrawlStep creates a crawl step around spider.
func NewCrawlStep(spider *crawler.Spider) *CrawlStep {
	return &CrawlStep{spider: spider}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls report.Seed and copies the outcome into report.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	if s.spider == nil {
		return ErrNoSpider
	}

	result, err := s.spider.Crawl(ctx, report.Seed)
	if result != nil {
		steps := report.PerformedSteps
		runID := report.RunID
		*report = *result
		report.PerformedSteps = steps
		report.RunID = runID
	}
	return err
}

// RunStore persists finished runs. *database.CrawlDB implements it.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.CrawlReport) (int64, error)
}

// PersistStep stores the branch report in the history database.
type PersistStep struct {
	store  RunStore
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a step that saves runs to store.
func NewPersistStep(store RunStore, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Finalize marks PersistStep as a Finalizer.
func (s *PersistStep) Finalize() {}

// Do saves the report and sets report.RunID.
func (s *PersistStep) Do(ctx context.Context, report *model.CrawlReport) error {
	id, err := s.store.SaveRun(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save run for %s: %w", report.Seed, err)
	}
	report.RunID = id

	s.logger.Debug("run saved",
		"seed", report.Seed,
		"run_id", id,
		"records", report.RecordCount(),
	)
	return nil
}

// MetricsStep records the per-run gauges of a finished branch.
type MetricsStep struct {
	recorder *metrics.Recorder
}

// NewMetricsStep creates a metrics step. A nil recorder makes it a no-op.
func NewMetricsStep(recorder *metrics.Recorder) *MetricsStep {
	return &MetricsStep{recorder: recorder}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Finalize marks MetricsStep as a Finalizer.
func (s *MetricsStep) Finalize() {}

// Do records the run.
func (s *MetricsStep) Do(_ context.Context, report *model.CrawlReport) error {
	s.recorder.RunFinished(report)
	return nil
}

// BranchConfig lists the components of a default crawl branch.
// Store and Recorder are optional.
type BranchConfig struct {
	Spider   *crawler.Spider
	Store    RunStore
	Recorder *metrics.Recorder
	Logger   *slog.Logger
}

// DefaultPipeline builds crawl, persist and metrics steps from cfg,
// leaving out the optional steps whose component is nil.
func DefaultPipeline(cfg BranchConfig, opts ...Option) *Pipeline {
	if cfg.Logger != nil {
		opts = append([]Option{WithLogger(cfg.Logger)}, opts...)
	}
	p := New(opts...)

	p.AddStep(NewCrawlStep(cfg.Spider))
	if cfg.Store != nil {
		persistOpts := []PersistStepOption{}
		if cfg.Logger != nil {
			persistOpts = append(persistOpts, WithPersistLogger(cfg.Logger))
		}
		p.AddStep(NewPersistStep(cfg.Store, persistOpts...))
	}
	if cfg.Recorder != nil {
		p.AddStep(NewMetricsStep(cfg.Recorder))
	}
	return p
}
