package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/quotecrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds crawled at once.
const DefaultConcurrency = 4

// Factory builds the pipeline for one seed. Every seed gets a fresh
// pipeline, so page state and per-site settings never leak between branches.
type Factory func(seed string) *Pipeline

// BatchProcessor crawls several seeds concurrently.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent branches.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls seeds and returns one report per seed in input order.
// A failing branch never stops the others; its error stays in its report.
// Seeds that never started because ctx was cancelled get a report with
// reason cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	results := make([]*model.CrawlReport, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(report *model.CrawlReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback crawls seeds and calls callback with each
// finished report and the seed's index. The callback is called from the
// branch goroutine and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch",
		"seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			report := model.NewCrawlReport(seed)

			if err := ctx.Err(); err != nil {
				report.Stop(model.StopCancelled, err.Error())
				report.Error = err
				report.ErrorMessage = err.Error()
				callback(report, i)
				return nil
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			if err := bp.factory(seed).Execute(ctx, report); err != nil {
				bp.logger.Warn("branch failed",
					"seed", seed,
					"reason", report.StopReason,
					"error", err,
				)
			} else {
				bp.logger.Info("branch finished",
					"seed", seed,
					"pages", report.PageCount(),
					"records", report.RecordCount(),
					"reason", report.StopReason,
				)
			}

			callback(report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // branches never return errors

	bp.logger.Info("batch complete",
		"seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}
