// cmd/triage-manager/server.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	stderrors "github.com/swarnavarsha1/gmail-outlook-automation/internal/common/errors"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/connector"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/workflow"
)

// triageTimeout bounds one run end to end, covering every completion and
// lookup call it makes.
const triageTimeout = 3 * time.Minute

// Server is the ingestion surface. The mailbox poller POSTs each new email
// here and receives the terminal WorkflowResult.
type Server struct {
	pool     *workflow.Pool
	store    *connector.OutcomeStore
	deduper  *connector.Deduper
	events   *connector.EventPublisher
	notifier *connector.Notifier
	logger   logger.Logger
}

func NewServer(pool *workflow.Pool, store *connector.OutcomeStore, deduper *connector.Deduper,
	events *connector.EventPublisher, notifier *connector.Notifier, log logger.Logger) *Server {
	return &Server{
		pool:     pool,
		store:    store,
		deduper:  deduper,
		events:   events,
		notifier: notifier,
		logger:   log.With(map[string]interface{}{"component": "server"}),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/triage", s.handleTriage)
	mux.HandleFunc("/v1/outcomes", s.handleOutcomes)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var msg models.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message payload"})
		return
	}
	if msg.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), triageTimeout)
	defer cancel()

	if s.deduper != nil {
		claimed, err := s.deduper.Claim(ctx, msg.Account, msg.ID)
		if err != nil {
			s.logger.WithError(err).Error("dedupe check failed", map[string]interface{}{"messageId": msg.ID})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "dedupe unavailable"})
			return
		}
		if !claimed {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "message already processed"})
			return
		}
	}

	result, runErr := s.pool.Process(ctx, msg)
	if runErr != nil && result.State == "" {
		// The run never started (slot wait cancelled).
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "triage unavailable"})
		return
	}

	s.finalize(ctx, msg, result)
	writeJSON(w, http.StatusOK, result)
}

// finalize persists and fans out one terminal result. Connector calls get
// a bounded retry; failures are logged, never propagated — the result
// already exists and the caller gets it regardless.
func (s *Server) finalize(ctx context.Context, msg models.InboundMessage, result models.WorkflowResult) {
	if s.store != nil {
		err := stderrors.Retry(ctx, stderrors.DefaultRetryPolicy, s.logger, "outcome-save", func() error {
			if err := s.store.Save(ctx, result); err != nil {
				return stderrors.NewResultStoreFailedError(err)
			}
			return nil
		})
		if err != nil {
			s.logger.WithError(err).Error("outcome persistence failed", map[string]interface{}{
				"runId": result.Trace.RunID,
			})
		}
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, result); err != nil {
			s.logger.WithError(err).Error("result event publish failed", map[string]interface{}{
				"runId": result.Trace.RunID,
			})
		}
	}

	if result.State == models.ResultEscalated && s.notifier != nil {
		err := stderrors.Retry(ctx, stderrors.DefaultRetryPolicy, s.logger, "escalation-notify", func() error {
			if err := s.notifier.NotifyEscalation(ctx, msg, result); err != nil {
				return stderrors.NewNotificationFailedError("escalation", err)
			}
			return nil
		})
		if err != nil {
			s.logger.WithError(err).Error("escalation notification failed", map[string]interface{}{
				"runId": result.Trace.RunID,
			})
		}
	}

	// Failed runs release the dedupe mark so the poller can retry later.
	if result.State == models.ResultFailed && s.deduper != nil {
		if err := s.deduper.Release(ctx, msg.Account, msg.ID); err != nil {
			s.logger.WithError(err).Warn("dedupe release failed", map[string]interface{}{
				"messageId": msg.ID,
			})
		}
	}
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "outcome store not configured"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	outcomes, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("outcome listing failed", nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
