package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/quotecrawl/internal/model"
)

// Step is one stage of a crawl branch.
type Step interface {
	// Do executes the step against the branch report.
	// Branch-level failures are recorded in the report by the step that
	// observed them and also returned.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Finalizer is a Step that runs even when the context is cancelled or an
// earlier step failed. It receives a context without cancellation.
type Finalizer interface {
	Step
	Finalize()
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps running ordinary steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep executing ordinary
// steps after one fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order and returns the first error, or the
// context error when the branch was cancelled between steps.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	var firstErr error

	for _, step := range p.steps {
		_, final := step.(Finalizer)
		stepCtx := ctx

		if ctxErr := ctx.Err(); ctxErr != nil {
			if !final {
				p.logger.Warn("pipeline cancelled",
					"step", step.Name(),
					"reason", ctxErr,
				)
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					report.TimedOut = true
				}
				if firstErr == nil {
					firstErr = ctxErr
				}
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		if firstErr != nil && !p.continueOnError && !final {
			p.logger.Debug("skipping step after failure",
				"step", step.Name(),
				"seed", report.Seed,
			)
			continue
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"seed", report.Seed,
		)

		if err := step.Do(stepCtx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", report.Seed,
				"error", err,
			)

			if report.Error == nil {
				report.Error = err
				report.ErrorMessage = err.Error()
			}
			if firstErr == nil {
				firstErr = err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"seed", report.Seed,
			)
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
