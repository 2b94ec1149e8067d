// internal/models/message.go
package models

import (
	"strings"
	"time"
)

// InboundMessage is a single customer email as handed over by the mailbox
// poller. Immutable once ingested.
type InboundMessage struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId,omitempty"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt"`
	Account    string    `json:"account"`
}

// Text returns the classification input (subject + body).
func (m InboundMessage) Text() string {
	if m.Subject == "" {
		return m.Body
	}
	return m.Subject + "\n\n" + m.Body
}

// Category is the closed triage taxonomy. Every message resolves to exactly
// one member.
type Category string

const (
	CategoryComplaint      Category = "complaint"
	CategoryProductInquiry Category = "product_inquiry"
	CategoryFeedback       Category = "feedback"
	CategoryFleetRelated   Category = "fleet_related"
	CategoryUnrelated      Category = "unrelated"
)

// categoryAliases maps labels the completion model has been observed to emit
// (including the legacy taxonomy) onto the closed set.
var categoryAliases = map[string]Category{
	"complaint":              CategoryComplaint,
	"customer_complaint":     CategoryComplaint,
	"product_inquiry":        CategoryProductInquiry,
	"product_enquiry":        CategoryProductInquiry,
	"enquiry":                CategoryProductInquiry,
	"inquiry":                CategoryProductInquiry,
	"feedback":               CategoryFeedback,
	"customer_feedback":      CategoryFeedback,
	"fleet_related":          CategoryFleetRelated,
	"samsara_location_query": CategoryFleetRelated,
	"samsara_driver_query":   CategoryFleetRelated,
	"samsara_vehicle_query":  CategoryFleetRelated,
	"fleet_query":            CategoryFleetRelated,
	"unrelated":              CategoryUnrelated,
	"other":                  CategoryUnrelated,
	"spam":                   CategoryUnrelated,
}

// ParseCategory normalizes a raw model label to a taxonomy member. The
// boolean reports whether the label could be mapped.
func ParseCategory(raw string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Trim(key, `"'.`)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	c, ok := categoryAliases[key]
	return c, ok
}

// AllCategories lists the taxonomy in a stable order (prompt construction,
// validation schemas).
func AllCategories() []Category {
	return []Category{
		CategoryComplaint,
		CategoryProductInquiry,
		CategoryFeedback,
		CategoryFleetRelated,
		CategoryUnrelated,
	}
}

// EntityType identifies what kind of fleet entity a telemetry fact is about.
type EntityType string

const (
	EntityVehicle  EntityType = "vehicle"
	EntityDriver   EntityType = "driver"
	EntityLocation EntityType = "location"
)

// RetrievedPassage is a single knowledge-base hit. Sets are ordered by
// descending Score; passages below the configured threshold are never
// surfaced.
type RetrievedPassage struct {
	DocumentID string  `json:"documentId"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// TelemetryFact is one resolved (or failed) fleet lookup. Resolved=false
// flags an entity the fleet service could not answer for; Attributes is nil
// in that case.
type TelemetryFact struct {
	EntityType EntityType        `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Resolved   bool              `json:"resolved"`
}

// GroundingContext carries whatever external facts were gathered for the
// synthesizer. Either Passages or Facts is populated, never both; both empty
// means "no grounding available", which downstream treats as a normal case.
type GroundingContext struct {
	Passages []RetrievedPassage `json:"passages,omitempty"`
	Facts    []TelemetryFact    `json:"facts,omitempty"`
	// Degraded marks grounding that failed or came back partial; the
	// workflow proceeds but the trace records it.
	Degraded bool `json:"degraded,omitempty"`
}

// Empty reports whether there is no usable grounding at all.
func (g GroundingContext) Empty() bool {
	return len(g.Passages) == 0 && len(g.Facts) == 0
}

// DraftCandidate is one synthesizer output. Revision starts at 0 and
// increments on every regeneration within a run.
type DraftCandidate struct {
	Body          string           `json:"body"`
	Category      Category         `json:"category"`
	Grounding     GroundingContext `json:"grounding"`
	Revision      int              `json:"revision"`
	PriorFeedback []string         `json:"priorFeedback,omitempty"`
}

// QAVerdict is the quality gate's decision on a candidate. Issues enumerates
// every failing check as an actionable instruction for the rewrite.
type QAVerdict struct {
	Accept bool     `json:"accept"`
	Issues []string `json:"issues,omitempty"`
	Score  float64  `json:"score"`
}
