// internal/triage/classifier/classifier_test.go
package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, _ genai.Options) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testMessage(subject, body string) models.InboundMessage {
	return models.InboundMessage{
		ID:      "msg-001",
		Sender:  "customer@example.com",
		Subject: subject,
		Body:    body,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected models.Category
	}{
		{
			name:     "structured complaint",
			response: `{"category": "customer_complaint"}`,
			expected: models.CategoryComplaint,
		},
		{
			name:     "structured inquiry with surrounding prose",
			response: "Here is my answer:\n```json\n{\"category\": \"product_enquiry\"}\n```",
			expected: models.CategoryProductInquiry,
		},
		{
			name:     "bare label",
			response: "customer_feedback",
			expected: models.CategoryFeedback,
		},
		{
			name:     "mixed case with whitespace",
			response: "  Fleet_Related \n",
			expected: models.CategoryFleetRelated,
		},
		{
			name:     "unrelated",
			response: `{"category": "unrelated"}`,
			expected: models.CategoryUnrelated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &stubCompleter{response: tt.response}
			c := New(completer, logger.NewTestLogger(t))

			category, err := c.Classify(context.Background(), testMessage("Help", "My tracker stopped reporting."))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, category)
			require.Len(t, completer.prompts, 1)
			assert.Contains(t, completer.prompts[0], "My tracker stopped reporting.")
		})
	}
}

func TestClassifyEmptyMessageSkipsCompletion(t *testing.T) {
	completer := &stubCompleter{response: `{"category": "customer_complaint"}`}
	c := New(completer, logger.NewTestLogger(t))

	category, err := c.Classify(context.Background(), testMessage("", "   \n\t"))

	require.NoError(t, err)
	assert.Equal(t, models.CategoryUnrelated, category)
	assert.Empty(t, completer.prompts, "empty messages should not reach the completion service")
}

func TestClassifyUnmappableLabel(t *testing.T) {
	completer := &stubCompleter{response: `{"category": "spam_probably"}`}
	c := New(completer, logger.NewTestLogger(t))

	_, err := c.Classify(context.Background(), testMessage("Hi", "Just checking in."))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassificationFailed)
}

func TestClassifyCompletionError(t *testing.T) {
	completer := &stubCompleter{err: genai.ErrCompletionTimeout}
	c := New(completer, logger.NewTestLogger(t))

	_, err := c.Classify(context.Background(), testMessage("Hi", "Where is truck 42?"))

	require.Error(t, err)
	assert.ErrorIs(t, err, genai.ErrCompletionTimeout)
	assert.False(t, errors.Is(err, ErrClassificationFailed))
}
