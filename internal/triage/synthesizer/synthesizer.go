// internal/triage/synthesizer/synthesizer.go
package synthesizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// categoryGuidance sets tone and structure per category. The draft always
// opens with a greeting and closes with a sign-off; what sits between is
// category-specific.
var categoryGuidance = map[models.Category]string{
	models.CategoryComplaint: "The customer is dissatisfied. Open by acknowledging the problem and apologizing sincerely. " +
		"Address their specific complaint using the reference material, explain what happens next, and offer a concrete resolution or escalation path. " +
		"Never be defensive and never blame the customer.",
	models.CategoryProductInquiry: "The customer wants product or pricing information. Answer their questions directly and factually " +
		"using only the reference material. If the reference material does not cover a question, say so and offer to follow up rather than guessing.",
	models.CategoryFeedback: "The customer took time to share feedback. Thank them warmly and specifically for what they mentioned, " +
		"let them know their input reaches the product team, and invite them to keep sharing.",
	models.CategoryFleetRelated: "The customer asks about their fleet. Report the fleet data provided below precisely: names, statuses, " +
		"and locations exactly as given. For any entity marked unresolved, state plainly that it could not be found and suggest verifying the identifier.",
}

// Config tunes draft generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// Synthesizer produces one reply draft per call. It never evaluates its own
// output; acceptance is the quality gate's job.
type Synthesizer struct {
	config    Config
	completer genai.Completer
	logger    logger.Logger
}

func New(config Config, completer genai.Completer, log logger.Logger) *Synthesizer {
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Temperature == 0 {
		config.Temperature = 0.4
	}
	return &Synthesizer{
		config:    config,
		completer: completer,
		logger:    log.With(map[string]interface{}{"component": "synthesizer"}),
	}
}

// Synthesize generates a draft for the message. revision counts prior
// attempts within this run; priorFeedback carries the gate's issues from the
// rejected attempt and is folded into the prompt as corrective instructions.
func (s *Synthesizer) Synthesize(ctx context.Context, msg models.InboundMessage, category models.Category,
	grounding models.GroundingContext, revision int, priorFeedback []string) (models.DraftCandidate, error) {

	prompt := buildPrompt(msg, category, grounding, priorFeedback)

	body, err := s.completer.Complete(ctx, prompt, genai.Options{
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return models.DraftCandidate{}, fmt.Errorf("draft completion: %w", err)
	}

	s.logger.Info("draft generated", map[string]interface{}{
		"messageId": msg.ID,
		"category":  string(category),
		"revision":  revision,
		"length":    len(body),
	})

	return models.DraftCandidate{
		Body:          strings.TrimSpace(body),
		Category:      category,
		Grounding:     grounding,
		Revision:      revision,
		PriorFeedback: priorFeedback,
	}, nil
}

func buildPrompt(msg models.InboundMessage, category models.Category,
	grounding models.GroundingContext, priorFeedback []string) string {

	var parts []string

	parts = append(parts, "You are a professional customer support agent writing an email reply.")
	parts = append(parts, "\n"+categoryGuidance[category])

	parts = append(parts, "\nStructure requirements:")
	parts = append(parts, "- Open with a polite greeting addressing the customer.")
	parts = append(parts, "- Close with a courteous sign-off from the support team.")
	parts = append(parts, "- Write the complete email body, ready to send. No placeholders like [Name] or TODO.")
	parts = append(parts, "- Do not invent facts. Only state what the customer's email or the reference material supports.")

	if section := renderGrounding(grounding); section != "" {
		parts = append(parts, section)
	} else {
		parts = append(parts, "\nNo reference material is available. Keep the reply general, acknowledge the request, and offer a follow-up from the team.")
	}

	if len(priorFeedback) > 0 {
		parts = append(parts, "\nA previous draft was rejected by review. You must correct every one of these issues:")
		for _, issue := range priorFeedback {
			parts = append(parts, "- "+issue)
		}
	}

	parts = append(parts, fmt.Sprintf("\nCustomer email from %s:", msg.Sender))
	if msg.Subject != "" {
		parts = append(parts, "Subject: "+msg.Subject)
	}
	parts = append(parts, msg.Body)

	parts = append(parts, "\nWrite only the reply email body.")

	return strings.Join(parts, "\n")
}

func renderGrounding(grounding models.GroundingContext) string {
	var b strings.Builder

	if len(grounding.Passages) > 0 {
		b.WriteString("\nReference material from the knowledge base:")
		for i, p := range grounding.Passages {
			b.WriteString(fmt.Sprintf("\n[%d] %s", i+1, p.Text))
		}
	}

	if len(grounding.Facts) > 0 {
		b.WriteString("\nLive fleet data:")
		for _, f := range grounding.Facts {
			if !f.Resolved {
				b.WriteString(fmt.Sprintf("\n- %s %q: NOT FOUND on the fleet platform.", f.EntityType, f.EntityID))
				continue
			}
			b.WriteString(fmt.Sprintf("\n- %s %q:", f.EntityType, f.EntityID))
			for _, k := range sortedKeys(f.Attributes) {
				b.WriteString(fmt.Sprintf(" %s=%s;", k, f.Attributes[k]))
			}
		}
	}

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
