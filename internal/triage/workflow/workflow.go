// internal/triage/workflow/workflow.go
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/observability"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// Capability interfaces over the five triage components. The engine owns
// only control flow; tests substitute deterministic stubs for all of them.
type (
	Classifier interface {
		Classify(ctx context.Context, msg models.InboundMessage) (models.Category, error)
	}

	Retriever interface {
		RetrieveForMessage(ctx context.Context, msg models.InboundMessage) ([]models.RetrievedPassage, error)
	}

	TelemetryResolver interface {
		Resolve(ctx context.Context, msg models.InboundMessage) ([]models.TelemetryFact, error)
	}

	Synthesizer interface {
		Synthesize(ctx context.Context, msg models.InboundMessage, category models.Category,
			grounding models.GroundingContext, revision int, priorFeedback []string) (models.DraftCandidate, error)
	}

	Reviewer interface {
		Review(ctx context.Context, msg models.InboundMessage, draft models.DraftCandidate) (models.QAVerdict, error)
	}
)

// Config bounds a single run.
type Config struct {
	// MaxRevisions is the number of drafting attempts before escalation.
	MaxRevisions int
}

// Engine drives one message through classification, grounding, drafting,
// and gating to a terminal WorkflowResult. Exactly one terminal state per
// run: drafted, suppressed, escalated, or failed.
type Engine struct {
	config      Config
	classifier  Classifier
	retriever   Retriever
	telemetry   TelemetryResolver
	synthesizer Synthesizer
	gate        Reviewer
	metrics     *observability.Observability
	tracing     *observability.Tracing
	logger      logger.Logger
}

func NewEngine(config Config, classifier Classifier, retriever Retriever, telemetry TelemetryResolver,
	synthesizer Synthesizer, gate Reviewer, metrics *observability.Observability,
	tracing *observability.Tracing, log logger.Logger) *Engine {

	if config.MaxRevisions < 1 {
		config.MaxRevisions = 3
	}
	return &Engine{
		config:      config,
		classifier:  classifier,
		retriever:   retriever,
		telemetry:   telemetry,
		synthesizer: synthesizer,
		gate:        gate,
		metrics:     metrics,
		tracing:     tracing,
		logger:      log.With(map[string]interface{}{"component": "workflow"}),
	}
}

// Run is the single entry point of the triage core. It always returns a
// terminal result; the error is non-nil only alongside a failed state and
// carries the infrastructure cause for the caller's logs.
func (e *Engine) Run(ctx context.Context, msg models.InboundMessage) (models.WorkflowResult, error) {
	trace := models.RunTrace{RunID: uuid.NewString()}
	log := e.logger.With(map[string]interface{}{
		"runId":     trace.RunID,
		"messageId": msg.ID,
	})
	log.Info("workflow run started", nil)

	// Received → Classified
	category, err := e.classify(ctx, trace.RunID, msg)
	if err != nil {
		log.WithError(err).Error("classification failed, run terminated", nil)
		return e.finish(ctx, models.WorkflowResult{
			MessageID: msg.ID,
			State:     models.ResultFailed,
			Trace:     trace,
		}), err
	}
	trace.Category = category

	// Classified → Suppressed: unrelated mail gets no reply and spends no
	// further completion calls.
	if category == models.CategoryUnrelated {
		log.Info("message unrelated, suppressing", nil)
		return e.finish(ctx, models.WorkflowResult{
			MessageID: msg.ID,
			State:     models.ResultSuppressed,
			Trace:     trace,
		}), nil
	}

	// Classified → Grounding. Failures degrade to empty context; the run
	// proceeds and the trace records the degradation.
	grounding := e.ground(ctx, trace.RunID, msg, category, log)
	trace.GroundingDegraded = grounding.Degraded
	if grounding.Degraded {
		trace.Annotations = append(trace.Annotations, "grounding degraded")
	}

	// Grounding → Drafting → Gating, with the bounded revise loop.
	var (
		best        *models.DraftCandidate
		bestVerdict *models.QAVerdict
		feedback    []string
	)

	for revision := 0; revision < e.config.MaxRevisions; revision++ {
		draft, err := e.draft(ctx, trace.RunID, msg, category, grounding, revision, feedback)
		if err != nil {
			log.WithError(err).Error("drafting failed, run terminated", map[string]interface{}{
				"revision": revision,
			})
			trace.Revisions = revision
			return e.finish(ctx, models.WorkflowResult{
				MessageID: msg.ID,
				State:     models.ResultFailed,
				Trace:     trace,
			}), err
		}

		verdict, err := e.review(ctx, trace.RunID, msg, draft)
		if err != nil {
			log.WithError(err).Error("gating failed, run terminated", map[string]interface{}{
				"revision": revision,
			})
			trace.Revisions = revision
			return e.finish(ctx, models.WorkflowResult{
				MessageID: msg.ID,
				State:     models.ResultFailed,
				Trace:     trace,
			}), err
		}
		trace.LastVerdict = &verdict

		if verdict.Accept {
			trace.Revisions = draft.Revision
			log.Info("draft accepted", map[string]interface{}{
				"revision": draft.Revision,
				"score":    verdict.Score,
			})
			return e.finish(ctx, models.WorkflowResult{
				MessageID: msg.ID,
				State:     models.ResultDrafted,
				Draft:     &draft,
				Trace:     trace,
			}), nil
		}

		if best == nil || verdict.Score > bestVerdict.Score {
			d, v := draft, verdict
			best, bestVerdict = &d, &v
		}
		feedback = verdict.Issues
		log.Info("draft rejected", map[string]interface{}{
			"revision": draft.Revision,
			"issues":   len(verdict.Issues),
		})
	}

	// Revision budget exhausted with the gate still rejecting: hand the
	// best attempt to a human.
	trace.Revisions = e.config.MaxRevisions
	log.Warn("revision budget exhausted, escalating", map[string]interface{}{
		"maxRevisions": e.config.MaxRevisions,
	})
	return e.finish(ctx, models.WorkflowResult{
		MessageID:  msg.ID,
		State:      models.ResultEscalated,
		Draft:      best,
		OpenIssues: bestVerdict.Issues,
		Trace:      trace,
	}), nil
}

func (e *Engine) classify(ctx context.Context, runID string, msg models.InboundMessage) (models.Category, error) {
	defer e.stage(ctx, runID, "classify")()
	return e.classifier.Classify(ctx, msg)
}

// ground populates the context for the category's branch of the state
// machine. It never returns an error: degraded grounding is a normal,
// recorded condition.
func (e *Engine) ground(ctx context.Context, runID string, msg models.InboundMessage,
	category models.Category, log logger.Logger) models.GroundingContext {
	defer e.stage(ctx, runID, "ground")()

	switch category {
	case models.CategoryFleetRelated:
		facts, err := e.telemetry.Resolve(ctx, msg)
		if err != nil {
			log.WithError(err).Warn("telemetry grounding degraded", nil)
			return models.GroundingContext{Facts: facts, Degraded: true}
		}
		return models.GroundingContext{Facts: facts}

	case models.CategoryComplaint, models.CategoryProductInquiry, models.CategoryFeedback:
		passages, err := e.retriever.RetrieveForMessage(ctx, msg)
		if err != nil {
			log.WithError(err).Warn("retrieval grounding degraded", nil)
			return models.GroundingContext{Degraded: true}
		}
		return models.GroundingContext{Passages: passages}

	default:
		return models.GroundingContext{}
	}
}

func (e *Engine) draft(ctx context.Context, runID string, msg models.InboundMessage, category models.Category,
	grounding models.GroundingContext, revision int, feedback []string) (models.DraftCandidate, error) {
	defer e.stage(ctx, runID, "draft")()
	draft, err := e.synthesizer.Synthesize(ctx, msg, category, grounding, revision, feedback)
	if err != nil {
		return models.DraftCandidate{}, fmt.Errorf("synthesize revision %d: %w", revision, err)
	}
	return draft, nil
}

func (e *Engine) review(ctx context.Context, runID string, msg models.InboundMessage,
	draft models.DraftCandidate) (models.QAVerdict, error) {
	defer e.stage(ctx, runID, "review")()
	verdict, err := e.gate.Review(ctx, msg, draft)
	if err != nil {
		return models.QAVerdict{}, fmt.Errorf("review revision %d: %w", draft.Revision, err)
	}
	return verdict, nil
}

// stage opens a span and a duration measurement for one workflow stage.
// Both sinks are optional.
func (e *Engine) stage(ctx context.Context, runID, name string) func() {
	start := time.Now()
	end := func() {}
	if e.tracing != nil {
		_, span := e.tracing.StartStage(ctx, name, runID)
		end = func() { span.End() }
	}
	return func() {
		end()
		if e.metrics != nil {
			e.metrics.RecordStageDuration(ctx, name, time.Since(start))
		}
	}
}

func (e *Engine) finish(ctx context.Context, result models.WorkflowResult) models.WorkflowResult {
	if e.metrics != nil {
		e.metrics.RecordRun(ctx, string(result.State), string(result.Trace.Category), result.Trace.Revisions)
	}
	return result
}
