// internal/triage/classifier/classifier.go
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

var ErrClassificationFailed = errors.New("CLASSIFICATION_FAILED")

// responseSchema constrains the structured classification output.
const responseSchema = `{
	"type": "object",
	"properties": {
		"category": {"type": "string"}
	},
	"required": ["category"]
}`

// Classifier maps an inbound message onto the closed category taxonomy.
// The completion service does the reading; this component guarantees the
// result is always a taxonomy member — free text that cannot be normalized
// fails with ErrClassificationFailed rather than leaking downstream.
type Classifier struct {
	completer genai.Completer
	logger    logger.Logger
}

func New(completer genai.Completer, log logger.Logger) *Classifier {
	return &Classifier{
		completer: completer,
		logger:    log.With(map[string]interface{}{"component": "classifier"}),
	}
}

func (c *Classifier) Classify(ctx context.Context, msg models.InboundMessage) (models.Category, error) {
	// Nothing to read at all: default toward unrelated without spending a
	// completion call.
	if strings.TrimSpace(msg.Text()) == "" {
		return models.CategoryUnrelated, nil
	}

	raw, err := c.completer.Complete(ctx, buildPrompt(msg), genai.Options{
		MaxTokens:   64,
		Temperature: 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("classify completion: %w", err)
	}

	category, ok := parseResponse(raw)
	if !ok {
		c.logger.Error("model returned unmappable category", map[string]interface{}{
			"messageId": msg.ID,
			"raw":       raw,
		})
		return "", fmt.Errorf("%w: unmappable label %q", ErrClassificationFailed, raw)
	}

	c.logger.Info("message classified", map[string]interface{}{
		"messageId": msg.ID,
		"category":  string(category),
	})
	return category, nil
}

// parseResponse accepts either the structured JSON form or a bare label and
// clamps it to the taxonomy.
func parseResponse(raw string) (models.Category, bool) {
	if doc, ok := genai.ExtractJSON(raw); ok {
		if err := genai.ValidateSchema(responseSchema, doc); err == nil {
			var out struct {
				Category string `json:"category"`
			}
			if json.Unmarshal([]byte(doc), &out) == nil {
				return models.ParseCategory(out.Category)
			}
		}
	}
	return models.ParseCategory(raw)
}

func buildPrompt(msg models.InboundMessage) string {
	var parts []string

	parts = append(parts, "You are a customer support specialist categorizing inbound emails.")
	parts = append(parts, "\nAssign exactly one category using these rules:")
	parts = append(parts, "- complaint: the customer communicates dissatisfaction or a problem with a product or service.")
	parts = append(parts, "- product_inquiry: the customer asks about a product feature, benefit, service, or pricing.")
	parts = append(parts, "- feedback: the customer offers feedback or suggestions.")
	parts = append(parts, "- fleet_related: the email asks about vehicle locations, vehicle details, or driver information from the fleet platform.")
	parts = append(parts, "- unrelated: none of the above. Newsletters, thanks, and marketing all land here.")

	parts = append(parts, fmt.Sprintf("\nSubject: %s", msg.Subject))
	parts = append(parts, fmt.Sprintf("\nEmail:\n%s", msg.Body))

	parts = append(parts, "\nBase the category strictly on the content above.")
	parts = append(parts, `Respond with JSON only: {"category": "<one of the five labels>"}`)

	return strings.Join(parts, "\n")
}
