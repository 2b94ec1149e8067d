// internal/connector/store.go
package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

var ErrResultStoreFailed = errors.New("RESULT_STORE_FAILED")

// OutcomeStore persists terminal workflow results. The dashboard layer and
// the mailbox sync job both read from this table; the triage core only
// writes.
type OutcomeStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewOutcomeStore(db *sql.DB, log logger.Logger) *OutcomeStore {
	return &OutcomeStore{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "outcome-store"}),
	}
}

const insertOutcomeQuery = `
	INSERT INTO triage_outcomes (run_id, message_id, state, category, revisions, draft_body, open_issues, trace, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (run_id) DO NOTHING`

// Save writes one terminal result. Duplicate run identifiers are ignored so
// at-least-once delivery upstream stays harmless.
func (s *OutcomeStore) Save(ctx context.Context, result models.WorkflowResult) error {
	var draftBody sql.NullString
	if result.Draft != nil {
		draftBody = sql.NullString{String: result.Draft.Body, Valid: true}
	}

	openIssues, err := json.Marshal(result.OpenIssues)
	if err != nil {
		return fmt.Errorf("%w: marshal issues: %v", ErrResultStoreFailed, err)
	}
	trace, err := json.Marshal(result.Trace)
	if err != nil {
		return fmt.Errorf("%w: marshal trace: %v", ErrResultStoreFailed, err)
	}

	_, err = s.db.ExecContext(ctx, insertOutcomeQuery,
		result.Trace.RunID,
		result.MessageID,
		string(result.State),
		string(result.Trace.Category),
		result.Trace.Revisions,
		draftBody,
		openIssues,
		trace,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResultStoreFailed, err)
	}

	s.logger.Info("outcome persisted", map[string]interface{}{
		"runId":     result.Trace.RunID,
		"messageId": result.MessageID,
		"state":     string(result.State),
	})
	return nil
}

// Outcome is one persisted row as the dashboard reads it.
type Outcome struct {
	RunID     string
	MessageID string
	State     models.ResultState
	Category  models.Category
	Revisions int
	DraftBody string
	CreatedAt time.Time
}

const recentOutcomesQuery = `
	SELECT run_id, message_id, state, category, revisions, COALESCE(draft_body, ''), created_at
	FROM triage_outcomes
	ORDER BY created_at DESC
	LIMIT $1`

// Recent lists the newest outcomes for the dashboard.
func (s *OutcomeStore) Recent(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, recentOutcomesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultStoreFailed, err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.RunID, &o.MessageID, &o.State, &o.Category, &o.Revisions, &o.DraftBody, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrResultStoreFailed, err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultStoreFailed, err)
	}
	return outcomes, nil
}
