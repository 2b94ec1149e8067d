// internal/connector/dedupe.go
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
)

// Deduper marks processed messages so mailbox poller retries never trigger
// a second workflow run for the same email. Marks expire after the TTL;
// the poller's retry horizon is much shorter.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewDeduper(client *redis.Client, ttl time.Duration, log logger.Logger) *Deduper {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Deduper{
		client: client,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "dedupe"}),
	}
}

func dedupeKey(account, messageID string) string {
	return fmt.Sprintf("triage:processed:%s:%s", account, messageID)
}

// Claim atomically marks the message as being processed. It returns false
// when another run already claimed it; the caller skips the message.
func (d *Deduper) Claim(ctx context.Context, account, messageID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupeKey(account, messageID), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe claim: %w", err)
	}
	if !ok {
		d.logger.Info("message already processed, skipping", map[string]interface{}{
			"account":   account,
			"messageId": messageID,
		})
	}
	return ok, nil
}

// Release drops the mark, letting the message be reprocessed. Used when a
// claimed run terminates in failed state so the next poll can retry it.
func (d *Deduper) Release(ctx context.Context, account, messageID string) error {
	if err := d.client.Del(ctx, dedupeKey(account, messageID)).Err(); err != nil {
		return fmt.Errorf("dedupe release: %w", err)
	}
	return nil
}
