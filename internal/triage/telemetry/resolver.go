// internal/triage/telemetry/resolver.go
package telemetry

import (
	"context"
	"errors"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/samsara"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// Resolver grounds fleet questions on live platform data. Each distinct
// entity mentioned in the message becomes one fact; entities the platform
// cannot resolve produce an unresolved fact rather than failing the run,
// so the synthesizer can acknowledge them honestly.
type Resolver struct {
	fleet  samsara.FleetData
	logger logger.Logger
}

func NewResolver(fleet samsara.FleetData, log logger.Logger) *Resolver {
	return &Resolver{
		fleet:  fleet,
		logger: log.With(map[string]interface{}{"component": "telemetry"}),
	}
}

// Resolve extracts fleet entities from the message and looks each one up.
// The returned facts preserve extraction order. The error is non-nil only
// when every lookup failed for infrastructure reasons; a mix of resolved
// and unknown entities is a normal outcome.
func (r *Resolver) Resolve(ctx context.Context, msg models.InboundMessage) ([]models.TelemetryFact, error) {
	entities := ExtractEntities(msg.Text())
	if len(entities) == 0 {
		r.logger.Info("no fleet entities found in message", map[string]interface{}{
			"messageId": msg.ID,
		})
		return nil, nil
	}

	facts := make([]models.TelemetryFact, 0, len(entities))
	failures := 0

	for _, entity := range entities {
		attributes, err := r.fleet.Lookup(ctx, entity.Type, entity.ID)
		switch {
		case err == nil:
			facts = append(facts, models.TelemetryFact{
				EntityType: entity.Type,
				EntityID:   entity.ID,
				Attributes: attributes,
				Resolved:   true,
			})
		case errors.Is(err, samsara.ErrNotFound):
			r.logger.Warn("fleet entity unknown", map[string]interface{}{
				"messageId":  msg.ID,
				"entityType": string(entity.Type),
				"entityId":   entity.ID,
			})
			facts = append(facts, models.TelemetryFact{
				EntityType: entity.Type,
				EntityID:   entity.ID,
				Resolved:   false,
			})
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Error("fleet lookup failed", map[string]interface{}{
				"messageId":  msg.ID,
				"entityType": string(entity.Type),
				"entityId":   entity.ID,
				"error":      err.Error(),
			})
			facts = append(facts, models.TelemetryFact{
				EntityType: entity.Type,
				EntityID:   entity.ID,
				Resolved:   false,
			})
			failures++
		}
	}

	if failures == len(entities) {
		return facts, samsara.ErrLookupFailed
	}
	return facts, nil
}
