// internal/models/message_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw      string
		expected Category
		ok       bool
	}{
		{"complaint", CategoryComplaint, true},
		{"customer_complaint", CategoryComplaint, true},
		{"product_inquiry", CategoryProductInquiry, true},
		{"product_enquiry", CategoryProductInquiry, true},
		{"Product Enquiry", CategoryProductInquiry, true},
		{"customer-feedback", CategoryFeedback, true},
		{"fleet_related", CategoryFleetRelated, true},
		{"samsara_vehicle_query", CategoryFleetRelated, true},
		{"samsara_driver_query", CategoryFleetRelated, true},
		{"  UNRELATED  ", CategoryUnrelated, true},
		{`"spam"`, CategoryUnrelated, true},
		{"urgent_billing_issue", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, ok := ParseCategory(tt.raw)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestAllCategoriesCoversAliasTargets(t *testing.T) {
	members := make(map[Category]bool)
	for _, c := range AllCategories() {
		members[c] = true
	}
	for alias, target := range categoryAliases {
		assert.True(t, members[target], "alias %q maps outside the taxonomy", alias)
	}
}

func TestMessageText(t *testing.T) {
	withSubject := InboundMessage{Subject: "Broken tracker", Body: "It stopped reporting."}
	assert.Equal(t, "Broken tracker\n\nIt stopped reporting.", withSubject.Text())

	bodyOnly := InboundMessage{Body: "It stopped reporting."}
	assert.Equal(t, "It stopped reporting.", bodyOnly.Text())
}

func TestGroundingContextEmpty(t *testing.T) {
	assert.True(t, GroundingContext{}.Empty())
	assert.True(t, GroundingContext{Degraded: true}.Empty())
	assert.False(t, GroundingContext{Passages: []RetrievedPassage{{DocumentID: "d"}}}.Empty())
	assert.False(t, GroundingContext{Facts: []TelemetryFact{{EntityID: "42"}}}.Empty())
}
