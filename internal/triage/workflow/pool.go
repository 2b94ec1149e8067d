// internal/triage/workflow/pool.go
package workflow

import (
	"context"
	"sync"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// Runner is what the pool schedules. The Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, msg models.InboundMessage) (models.WorkflowResult, error)
}

// Pool bounds how many workflow runs execute at once. Runs are independent
// per message; the semaphore only protects the completion and fleet
// backends from burst load.
type Pool struct {
	runner Runner
	sem    chan struct{}
	wg     sync.WaitGroup
	logger logger.Logger
}

func NewPool(runner Runner, maxConcurrency int, log logger.Logger) *Pool {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Pool{
		runner: runner,
		sem:    make(chan struct{}, maxConcurrency),
		logger: log.With(map[string]interface{}{"component": "pool"}),
	}
}

// Process runs a workflow for the message, waiting for a free slot first.
// Callers get the terminal result directly; ingestion handlers use this for
// request-scoped runs.
func (p *Pool) Process(ctx context.Context, msg models.InboundMessage) (models.WorkflowResult, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return models.WorkflowResult{}, ctx.Err()
	}
	defer func() { <-p.sem }()

	return p.runner.Run(ctx, msg)
}

// Submit schedules a workflow run without blocking the caller beyond slot
// acquisition. done receives the terminal result; run errors are already
// folded into the result's failed state and logged here.
func (p *Pool) Submit(ctx context.Context, msg models.InboundMessage, done func(models.WorkflowResult)) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		result, err := p.runner.Run(ctx, msg)
		if err != nil {
			p.logger.WithError(err).Error("workflow run failed", map[string]interface{}{
				"messageId": msg.ID,
			})
		}
		if done != nil {
			done(result)
		}
	}()
	return nil
}

// Wait blocks until every submitted run has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
