// internal/connector/events.go
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

// EventPublisher streams terminal results onto the result topic. Downstream
// consumers (dashboard refresh, analytics) subscribe there instead of
// polling the outcome table.
type EventPublisher struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewEventPublisher(brokers []string, topic string, log logger.Logger) *EventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &EventPublisher{
		writer: writer,
		logger: log.With(map[string]interface{}{"component": "events"}),
	}
}

// resultEvent is the wire shape on the result topic.
type resultEvent struct {
	RunID     string             `json:"runId"`
	MessageID string             `json:"messageId"`
	State     models.ResultState `json:"state"`
	Category  models.Category    `json:"category,omitempty"`
	Revisions int                `json:"revisions"`
	EmittedAt time.Time          `json:"emittedAt"`
}

// Publish emits one terminal result. Keying by message ID keeps all events
// for one email on one partition.
func (p *EventPublisher) Publish(ctx context.Context, result models.WorkflowResult) error {
	event := resultEvent{
		RunID:     result.Trace.RunID,
		MessageID: result.MessageID,
		State:     result.State,
		Category:  result.Trace.Category,
		Revisions: result.Trace.Revisions,
		EmittedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal result event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.MessageID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish result event: %w", err)
	}

	p.logger.Debug("result event published", map[string]interface{}{
		"runId": result.Trace.RunID,
		"state": string(result.State),
	})
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
