package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"pokewatch/internal/platform/config"
	"pokewatch/internal/workers"
)

// Dispatcher performs one HTTP delivery attempt per (subscription, event)
// pair. Deliveries run on the worker pool so fan-out is bounded and each
// attempt carries its own timeout; a failing endpoint never affects other
// subscriptions or the producer that emitted the event.
type Dispatcher struct {
	store      *Store
	pool       *workers.Pool
	client     *http.Client
	appName    string
	appVersion string
}

func NewDispatcher(store *Store, pool *workers.Pool, whCfg config.WebhooksConfig, appCfg config.AppConfig) *Dispatcher {
	timeout := whCfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		// Treat redirects as the endpoint's final answer; a 3xx is a failed
		// delivery, the subscriber should update its URL.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Dispatcher{
		store:      store,
		pool:       pool,
		client:     client,
		appName:    appCfg.Name,
		appVersion: appCfg.Version,
	}
}

type deliveryBody struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	App       appInfo     `json:"app"`
}

type appInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Dispatch schedules a single delivery attempt. There is no retry: a failure
// is logged and the subscription's lastTriggered is simply not updated.
func (d *Dispatcher) Dispatch(sub Subscription, event Event) {
	d.pool.Submit("webhook-delivery", func(ctx context.Context) {
		if err := d.send(ctx, sub, event); err != nil {
			log.Warn().
				Err(err).
				Str("webhook_id", sub.ID).
				Str("url", sub.URL).
				Str("event_type", event.Type).
				Msg("webhook delivery failed")
			return
		}

		d.store.TouchLastTriggered(sub.ID, time.Now().UTC())
		log.Debug().
			Str("webhook_id", sub.ID).
			Str("event_type", event.Type).
			Msg("webhook delivered")
	})
}

// Test performs one synchronous delivery of a synthetic webhook.test event,
// bypassing the active flag and event-type filter, and reports the outcome.
// This is the only path where a caller observes a delivery result.
func (d *Dispatcher) Test(ctx context.Context, sub Subscription) bool {
	event := Event{
		Type: EventTest,
		Payload: map[string]interface{}{
			"message": "This is a test event.",
			"webhook": sub.Name,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := d.send(ctx, sub, event); err != nil {
		log.Warn().
			Err(err).
			Str("webhook_id", sub.ID).
			Str("url", sub.URL).
			Msg("webhook test failed")
		return false
	}
	return true
}

func (d *Dispatcher) send(ctx context.Context, sub Subscription, event Event) error {
	body, err := json.Marshal(deliveryBody{
		Type:      event.Type,
		Payload:   event.Payload,
		Timestamp: event.Timestamp,
		App:       appInfo{Name: d.appName, Version: d.appVersion},
	})
	if err != nil {
		return fmt.Errorf("marshal delivery body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	if sub.Secret != "" {
		req.Header.Set("X-Webhook-Secret", sub.Secret)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Only 2xx counts as delivered.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}
