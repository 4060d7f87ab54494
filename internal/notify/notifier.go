// Package notify queues user notifications on a redis list and fans
// them out to a webhook from a background worker. Delivery is
// best-effort: a failed push or POST is logged and dropped, never
// retried against the ledger.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const queueKey = "wallet:notifications"

type Event struct {
	Type      string            `json:"type"`
	UserID    int               `json:"user_id"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Notifier struct {
	rdb        *redis.Client
	logger     zerolog.Logger
	webhookURL string
	client     *http.Client
}

func NewNotifier(rdb *redis.Client, logger zerolog.Logger, webhookURL string) *Notifier {
	return &Notifier{
		rdb:        rdb,
		logger:     logger,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish enqueues an event. Errors are swallowed after logging so a
// notification hiccup can never surface into a ledger operation.
func (n *Notifier) Publish(eventType string, userID int, data map[string]string) {
	event := Event{
		Type:      eventType,
		UserID:    userID,
		Data:      data,
		CreatedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Str("event", eventType).Msg("Failed to encode notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.rdb.LPush(ctx, queueKey, payload).Err(); err != nil {
		n.logger.Error().Err(err).Str("event", eventType).Int("user_id", userID).Msg("Failed to enqueue notification")
	}
}

// StartWorker consumes the queue until ctx is cancelled.
func (n *Notifier) StartWorker(ctx context.Context) {
	go func() {
		n.logger.Info().Msg("Notification worker started")
		for {
			select {
			case <-ctx.Done():
				n.logger.Info().Msg("Notification worker stopped")
				return
			default:
			}

			res, err := n.rdb.BRPop(ctx, 5*time.Second, queueKey).Result()
			if err != nil {
				if err == redis.Nil || ctx.Err() != nil {
					continue
				}
				n.logger.Error().Err(err).Msg("Notification queue read failed")
				time.Sleep(time.Second)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var event Event
			if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
				n.logger.Error().Err(err).Msg("Dropping malformed notification")
				continue
			}

			if err := n.deliver(&event); err != nil {
				n.logger.Warn().
					Err(err).
					Str("event", event.Type).
					Int("user_id", event.UserID).
					Msg("Notification delivery failed")
			}
		}
	}()
}

func (n *Notifier) deliver(event *Event) error {
	if n.webhookURL == "" {
		n.logger.Debug().Str("event", event.Type).Int("user_id", event.UserID).Msg("No webhook configured, dropping notification")
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, n.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ClipStream-Wallet/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}
