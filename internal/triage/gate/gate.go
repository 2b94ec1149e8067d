// internal/triage/gate/gate.go
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// reviewSchema constrains the structured tone review output.
const reviewSchema = `{
	"type": "object",
	"properties": {
		"tone_score": {"type": "number"},
		"issues": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["tone_score"]
}`

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[[A-Za-z][^\]\n]*\]`),
	regexp.MustCompile(`\{\{[^}]*\}\}`),
	regexp.MustCompile(`<(?:name|customer|company|date|insert)[^>]*>`),
	regexp.MustCompile(`(?i)\bTODO\b`),
	regexp.MustCompile(`(?i)\blorem ipsum\b`),
}

var greetingPattern = regexp.MustCompile(`(?i)^(dear|hello|hi|hey|greetings|good (morning|afternoon|evening))\b`)

var closingMarkers = []string{
	"regards", "sincerely", "best wishes", "thank you", "thanks for", "cheers",
}

// Config tunes the acceptance thresholds.
type Config struct {
	MinToneScore   float64
	MinDraftLength int
	MaxDraftLength int
}

// Gate decides whether a draft is fit to surface. Deterministic structural
// checks run first; only a structurally sound draft earns the completion
// call for tone review. Every failing check lands in the verdict so a
// rewrite can fix them all in one pass.
type Gate struct {
	config    Config
	completer genai.Completer
	logger    logger.Logger
}

func New(config Config, completer genai.Completer, log logger.Logger) *Gate {
	if config.MinDraftLength == 0 {
		config.MinDraftLength = 120
	}
	if config.MaxDraftLength == 0 {
		config.MaxDraftLength = 4000
	}
	if config.MinToneScore == 0 {
		config.MinToneScore = 0.6
	}
	return &Gate{
		config:    config,
		completer: completer,
		logger:    log.With(map[string]interface{}{"component": "gate"}),
	}
}

// Review evaluates a candidate against its originating message and returns
// a verdict.
// The error is non-nil only when the tone review itself could not run.
func (g *Gate) Review(ctx context.Context, msg models.InboundMessage, draft models.DraftCandidate) (models.QAVerdict, error) {
	issues := g.structuralIssues(draft)

	// A draft carrying unfilled placeholders is never sendable; skip the
	// tone call and send it straight back.
	if placeholder := findPlaceholder(draft.Body); placeholder != "" {
		issues = append([]string{
			fmt.Sprintf("remove the unfilled placeholder %q and write the real content", placeholder),
		}, issues...)
		verdict := models.QAVerdict{Accept: false, Issues: issues, Score: 0}
		g.logVerdict(msg.ID, draft.Revision, verdict)
		return verdict, nil
	}

	toneScore, toneIssues, err := g.reviewTone(ctx, msg, draft)
	if err != nil {
		return models.QAVerdict{}, err
	}
	if toneScore < g.config.MinToneScore {
		if len(toneIssues) == 0 {
			toneIssues = []string{"adjust the tone: it reads as unprofessional or unhelpful"}
		}
		issues = append(issues, toneIssues...)
	}

	verdict := models.QAVerdict{
		Accept: len(issues) == 0,
		Issues: issues,
		Score:  g.score(issues, toneScore),
	}
	g.logVerdict(msg.ID, draft.Revision, verdict)
	return verdict, nil
}

// structuralIssues runs every deterministic check and collects the failures.
func (g *Gate) structuralIssues(draft models.DraftCandidate) []string {
	var issues []string
	body := strings.TrimSpace(draft.Body)

	if !hasGreeting(body) {
		issues = append(issues, "open the reply with a greeting addressing the customer")
	}
	if !hasClosing(body) {
		issues = append(issues, "close the reply with a courteous sign-off")
	}
	if len(body) < g.config.MinDraftLength {
		issues = append(issues, fmt.Sprintf("the reply is too short (%d characters); write a complete response", len(body)))
	}
	if len(body) > g.config.MaxDraftLength {
		issues = append(issues, fmt.Sprintf("the reply is too long (%d characters); condense it", len(body)))
	}
	issues = append(issues, groundingIssues(body, draft.Grounding)...)

	return issues
}

// groundingIssues verifies the draft actually uses the facts it was given.
// A fleet answer that never mentions the vehicle it was asked about is
// worse than no answer.
func groundingIssues(body string, grounding models.GroundingContext) []string {
	var issues []string
	lower := strings.ToLower(body)
	for _, fact := range grounding.Facts {
		if !fact.Resolved {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(fact.EntityID)) && !mentionsAttribute(lower, fact) {
			issues = append(issues, fmt.Sprintf("reference %s %s and the data provided for it", fact.EntityType, fact.EntityID))
		}
	}
	return issues
}

func mentionsAttribute(lower string, fact models.TelemetryFact) bool {
	for _, v := range fact.Attributes {
		if len(v) >= 3 && strings.Contains(lower, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func findPlaceholder(body string) string {
	for _, p := range placeholderPatterns {
		if m := p.FindString(body); m != "" {
			return m
		}
	}
	return ""
}

func hasGreeting(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return greetingPattern.MatchString(line)
	}
	return false
}

func hasClosing(body string) bool {
	lower := strings.ToLower(body)
	// Only the tail counts as a closing.
	if len(lower) > 200 {
		lower = lower[len(lower)-200:]
	}
	for _, marker := range closingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// reviewTone asks the completion service to score professionalism and
// empathy. The structured form is required; an unparseable review is an
// infrastructure failure, not a rejection.
func (g *Gate) reviewTone(ctx context.Context, msg models.InboundMessage, draft models.DraftCandidate) (float64, []string, error) {
	raw, err := g.completer.Complete(ctx, buildReviewPrompt(msg, draft), genai.Options{
		MaxTokens:   256,
		Temperature: 0.0,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("tone review completion: %w", err)
	}

	doc, ok := genai.ExtractJSON(raw)
	if !ok {
		return 0, nil, fmt.Errorf("%w: tone review returned no JSON", genai.ErrCompletionFailed)
	}
	if err := genai.ValidateSchema(reviewSchema, doc); err != nil {
		return 0, nil, fmt.Errorf("%w: tone review: %v", genai.ErrCompletionFailed, err)
	}

	var out struct {
		ToneScore float64  `json:"tone_score"`
		Issues    []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return 0, nil, fmt.Errorf("%w: tone review: %v", genai.ErrCompletionFailed, err)
	}

	if out.ToneScore < 0 {
		out.ToneScore = 0
	}
	if out.ToneScore > 1 {
		out.ToneScore = 1
	}
	return out.ToneScore, out.Issues, nil
}

// score folds the structural checks and the tone score into one normalized
// number for the trace. 1.0 means a clean accept.
func (g *Gate) score(issues []string, toneScore float64) float64 {
	const structuralChecks = 5.0
	failed := float64(len(issues))
	if failed > structuralChecks {
		failed = structuralChecks
	}
	structural := (structuralChecks - failed) / structuralChecks
	return structural*0.5 + toneScore*0.5
}

func (g *Gate) logVerdict(messageID string, revision int, verdict models.QAVerdict) {
	g.logger.Info("draft reviewed", map[string]interface{}{
		"messageId": messageID,
		"revision":  revision,
		"accept":    verdict.Accept,
		"issues":    len(verdict.Issues),
		"score":     verdict.Score,
	})
}

func buildReviewPrompt(msg models.InboundMessage, draft models.DraftCandidate) string {
	var parts []string

	parts = append(parts, "You are a quality reviewer for customer support emails.")
	parts = append(parts, "\nScore the draft reply below for professionalism, empathy, and helpfulness toward the customer's email.")
	parts = append(parts, "tone_score is between 0.0 (unacceptable) and 1.0 (excellent).")
	parts = append(parts, "List concrete, actionable issues the writer must fix. An empty list means the tone is fine.")

	parts = append(parts, fmt.Sprintf("\nCustomer email:\n%s", msg.Text()))
	parts = append(parts, fmt.Sprintf("\nDraft reply:\n%s", draft.Body))

	parts = append(parts, "\nRespond with JSON only: {\"tone_score\": 0.0, \"issues\": [\"...\"]}")

	return strings.Join(parts, "\n")
}
