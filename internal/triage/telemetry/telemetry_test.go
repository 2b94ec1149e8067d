// internal/triage/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/samsara"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []Entity
	}{
		{
			name: "vehicle variants",
			text: "Where is truck 42? Also vehicle #17 and unit 9 have not reported.",
			expected: []Entity{
				{models.EntityVehicle, "42"},
				{models.EntityVehicle, "17"},
				{models.EntityVehicle, "9"},
			},
		},
		{
			name: "driver by id",
			text: "Driver ID D-118 missed his check-in.",
			expected: []Entity{
				{models.EntityDriver, "d-118"},
			},
		},
		{
			name: "mixed types preserve document order",
			text: "Driver 77 was last seen near depot 3 in truck 42.",
			expected: []Entity{
				{models.EntityDriver, "77"},
				{models.EntityLocation, "3"},
				{models.EntityVehicle, "42"},
			},
		},
		{
			name: "repeated mention deduplicated",
			text: "Truck 42 is late. Has truck 42 left the yard?",
			expected: []Entity{
				{models.EntityVehicle, "42"},
			},
		},
		{
			name:     "bare number is not an entity",
			text:     "My order 5521 arrived damaged, invoice 88 attached.",
			expected: nil,
		},
		{
			name:     "no entities",
			text:     "I love the new dashboard!",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractEntities(tt.text))
		})
	}
}

type stubFleet struct {
	lookups map[string]map[string]string
	errs    map[string]error
	calls   []string
}

func (s *stubFleet) Lookup(_ context.Context, entityType models.EntityType, entityID string) (map[string]string, error) {
	key := string(entityType) + ":" + entityID
	s.calls = append(s.calls, key)
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	if attrs, ok := s.lookups[key]; ok {
		return attrs, nil
	}
	return nil, samsara.ErrNotFound
}

func TestResolve(t *testing.T) {
	fleet := &stubFleet{
		lookups: map[string]map[string]string{
			"vehicle:42": {"name": "Truck 42", "location.city": "Reno"},
			"driver:77":  {"name": "A. Brooks", "status": "driving"},
		},
	}
	r := NewResolver(fleet, logger.NewTestLogger(t))

	msg := models.InboundMessage{ID: "msg-010", Body: "Where is truck 42 and what is driver 77 doing?"}
	facts, err := r.Resolve(context.Background(), msg)

	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.True(t, facts[0].Resolved)
	assert.Equal(t, "Reno", facts[0].Attributes["location.city"])
	assert.True(t, facts[1].Resolved)
	assert.Equal(t, []string{"vehicle:42", "driver:77"}, fleet.calls)
}

func TestResolveUnknownEntityProducesUnresolvedFact(t *testing.T) {
	fleet := &stubFleet{
		lookups: map[string]map[string]string{
			"vehicle:42": {"name": "Truck 42"},
		},
	}
	r := NewResolver(fleet, logger.NewTestLogger(t))

	msg := models.InboundMessage{ID: "msg-011", Body: "Compare truck 42 with truck 999."}
	facts, err := r.Resolve(context.Background(), msg)

	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.True(t, facts[0].Resolved)
	assert.False(t, facts[1].Resolved)
	assert.Equal(t, "999", facts[1].EntityID)
}

func TestResolveNoEntities(t *testing.T) {
	fleet := &stubFleet{}
	r := NewResolver(fleet, logger.NewTestLogger(t))

	msg := models.InboundMessage{ID: "msg-012", Body: "Thanks for the great service!"}
	facts, err := r.Resolve(context.Background(), msg)

	require.NoError(t, err)
	assert.Empty(t, facts)
	assert.Empty(t, fleet.calls)
}

func TestResolveAllLookupsFailing(t *testing.T) {
	fleet := &stubFleet{
		errs: map[string]error{
			"vehicle:42": samsara.ErrLookupFailed,
		},
	}
	r := NewResolver(fleet, logger.NewTestLogger(t))

	msg := models.InboundMessage{ID: "msg-013", Body: "Where is truck 42?"}
	facts, err := r.Resolve(context.Background(), msg)

	require.Error(t, err)
	assert.ErrorIs(t, err, samsara.ErrLookupFailed)
	require.Len(t, facts, 1)
	assert.False(t, facts[0].Resolved)
}

func TestResolvePartialFailureDegrades(t *testing.T) {
	fleet := &stubFleet{
		lookups: map[string]map[string]string{
			"vehicle:42": {"name": "Truck 42"},
		},
		errs: map[string]error{
			"driver:77": samsara.ErrLookupFailed,
		},
	}
	r := NewResolver(fleet, logger.NewTestLogger(t))

	msg := models.InboundMessage{ID: "msg-014", Body: "Where is truck 42 and driver 77?"}
	facts, err := r.Resolve(context.Background(), msg)

	require.NoError(t, err, "one healthy lookup keeps the run alive")
	require.Len(t, facts, 2)
	assert.True(t, facts[0].Resolved)
	assert.False(t, facts[1].Resolved)
}
