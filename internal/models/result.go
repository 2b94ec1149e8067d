// internal/models/result.go
package models

// ResultState tags the terminal outcome of one workflow run.
type ResultState string

const (
	// ResultDrafted: the gate accepted a candidate; a reply draft is ready
	// for a human to send.
	ResultDrafted ResultState = "drafted"
	// ResultSuppressed: the message is unrelated to support; no reply.
	ResultSuppressed ResultState = "suppressed"
	// ResultEscalated: the revision budget ran out with the gate still
	// rejecting; the best candidate goes to a human with the open issues.
	ResultEscalated ResultState = "escalated"
	// ResultFailed: an infrastructure problem (classification impossible or
	// completion service down after retries). Distinct from Escalated.
	ResultFailed ResultState = "failed"
)

// RunTrace is the observability record for one run.
type RunTrace struct {
	RunID             string     `json:"runId"`
	Category          Category   `json:"category,omitempty"`
	Revisions         int        `json:"revisions"`
	GroundingDegraded bool       `json:"groundingDegraded,omitempty"`
	LastVerdict       *QAVerdict `json:"lastVerdict,omitempty"`
	Annotations       []string   `json:"annotations,omitempty"`
}

// WorkflowResult is the single exit artifact of the triage core. The mailbox
// connector and dashboard layers render it; nothing else crosses the
// boundary.
type WorkflowResult struct {
	MessageID string          `json:"messageId"`
	State     ResultState     `json:"state"`
	Draft     *DraftCandidate `json:"draft,omitempty"`
	// OpenIssues carries the outstanding gate feedback on escalation.
	OpenIssues []string `json:"openIssues,omitempty"`
	Trace      RunTrace `json:"trace"`
}
