// internal/triage/gate/gate_test.go
package gate

import (
	"context"
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
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, _ string, _ genai.Options) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const goodBody = "Dear Ms. Alvarez,\n\n" +
	"Thank you for asking about our warranty coverage. All trackers carry a two-year warranty " +
	"that covers manufacturing defects, and extended coverage is available on annual plans.\n\n" +
	"Best regards,\nThe Support Team"

func newGate(t *testing.T, completer genai.Completer) *Gate {
	t.Helper()
	return New(Config{MinToneScore: 0.6, MinDraftLength: 120, MaxDraftLength: 4000}, completer, logger.NewTestLogger(t))
}

func draft(body string) models.DraftCandidate {
	return models.DraftCandidate{Body: body, Category: models.CategoryProductInquiry}
}

func msg() models.InboundMessage {
	return models.InboundMessage{ID: "msg-030", Body: "How long is the warranty?"}
}

func TestReviewAccepts(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 0.9, "issues": []}`}
	g := newGate(t, completer)

	verdict, err := g.Review(context.Background(), msg(), draft(goodBody))

	require.NoError(t, err)
	assert.True(t, verdict.Accept)
	assert.Empty(t, verdict.Issues)
	assert.InDelta(t, 0.95, verdict.Score, 0.001)
	assert.Equal(t, 1, completer.calls)
}

func TestReviewPlaceholderRejectsWithoutToneCall(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 1.0}`}
	g := newGate(t, completer)

	body := "Dear [Customer Name],\n\nThank you for contacting us about your recent purchase. " +
		"We value your business and want to make this right for you as quickly as we can.\n\nBest regards,\nThe Support Team"
	verdict, err := g.Review(context.Background(), msg(), draft(body))

	require.NoError(t, err)
	assert.False(t, verdict.Accept)
	require.NotEmpty(t, verdict.Issues)
	assert.Contains(t, verdict.Issues[0], "[Customer Name]")
	assert.Zero(t, verdict.Score)
	assert.Zero(t, completer.calls, "placeholders reject before the tone review runs")
}

func TestReviewEnumeratesAllStructuralIssues(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 0.9}`}
	g := newGate(t, completer)

	// No greeting, no closing, too short.
	verdict, err := g.Review(context.Background(), msg(), draft("The warranty is two years."))

	require.NoError(t, err)
	assert.False(t, verdict.Accept)
	require.Len(t, verdict.Issues, 3)
	assert.Contains(t, verdict.Issues[0], "greeting")
	assert.Contains(t, verdict.Issues[1], "sign-off")
	assert.Contains(t, verdict.Issues[2], "too short")
}

func TestReviewToneBelowThreshold(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 0.3, "issues": ["the second paragraph is dismissive"]}`}
	g := newGate(t, completer)

	verdict, err := g.Review(context.Background(), msg(), draft(goodBody))

	require.NoError(t, err)
	assert.False(t, verdict.Accept)
	require.Len(t, verdict.Issues, 1)
	assert.Equal(t, "the second paragraph is dismissive", verdict.Issues[0])
}

func TestReviewUnreferencedFleetFact(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 0.9}`}
	g := newGate(t, completer)

	d := models.DraftCandidate{
		Body:     goodBody,
		Category: models.CategoryFleetRelated,
		Grounding: models.GroundingContext{
			Facts: []models.TelemetryFact{
				{EntityType: models.EntityVehicle, EntityID: "4217", Attributes: map[string]string{"location.city": "Reno"}, Resolved: true},
			},
		},
	}
	verdict, err := g.Review(context.Background(), msg(), d)

	require.NoError(t, err)
	assert.False(t, verdict.Accept)
	require.Len(t, verdict.Issues, 1)
	assert.Contains(t, verdict.Issues[0], "vehicle 4217")
}

func TestReviewFactReferencedByAttribute(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 0.9}`}
	g := newGate(t, completer)

	body := "Dear Mr. Okafor,\n\n" +
		"Your vehicle was last reported in Reno earlier this hour, traveling on its scheduled route. " +
		"Let us know if you need the full trip history and we will pull it for you.\n\n" +
		"Best regards,\nThe Support Team"
	d := models.DraftCandidate{
		Body:     body,
		Category: models.CategoryFleetRelated,
		Grounding: models.GroundingContext{
			Facts: []models.TelemetryFact{
				{EntityType: models.EntityVehicle, EntityID: "4217", Attributes: map[string]string{"location.city": "Reno"}, Resolved: true},
			},
		},
	}
	verdict, err := g.Review(context.Background(), msg(), d)

	require.NoError(t, err)
	assert.True(t, verdict.Accept, "naming the looked-up city counts as referencing the fact")
}

func TestReviewUnresolvedFactNeedsNoReference(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 0.9}`}
	g := newGate(t, completer)

	d := models.DraftCandidate{
		Body:     goodBody,
		Category: models.CategoryFleetRelated,
		Grounding: models.GroundingContext{
			Facts: []models.TelemetryFact{
				{EntityType: models.EntityDriver, EntityID: "999", Resolved: false},
			},
		},
	}
	verdict, err := g.Review(context.Background(), msg(), d)

	require.NoError(t, err)
	assert.True(t, verdict.Accept)
}

func TestReviewToneScoreClamped(t *testing.T) {
	completer := &stubCompleter{response: `{"tone_score": 7.5}`}
	g := newGate(t, completer)

	verdict, err := g.Review(context.Background(), msg(), draft(goodBody))

	require.NoError(t, err)
	assert.True(t, verdict.Accept)
	assert.InDelta(t, 1.0, verdict.Score, 0.001)
}

func TestReviewToneFailureIsError(t *testing.T) {
	tests := []struct {
		name      string
		completer *stubCompleter
	}{
		{"completion error", &stubCompleter{err: genai.ErrCompletionTimeout}},
		{"no json", &stubCompleter{response: "looks fine to me"}},
		{"schema violation", &stubCompleter{response: `{"verdict": "ok"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate(t, tt.completer)

			_, err := g.Review(context.Background(), msg(), draft(goodBody))

			require.Error(t, err)
		})
	}
}
