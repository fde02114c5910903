// Package webhook delivers outbox records to the configured external endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"atendimento_backend/internal/notification/outbox"
	"atendimento_backend/platform/logger"

	"golang.org/x/time/rate"
)

// payload is the wire format delivered to subscribers.
type payload struct {
	EventType string    `json:"eventType"`
	EntityID  string    `json:"entityId"`
	NewState  string    `json:"newState,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Deliverer POSTs outbox records to one target URL under a global rate cap.
type Deliverer struct {
	targetURL string
	client    *http.Client
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewDeliverer creates a deliverer. A zero or negative rps disables the cap.
func NewDeliverer(targetURL string, timeout time.Duration, rps float64, log *logger.Logger) *Deliverer {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Deliverer{
		targetURL: targetURL,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
	}
}

// Enabled reports whether a target URL is configured.
func (d *Deliverer) Enabled() bool {
	return d.targetURL != ""
}

// Deliver POSTs one record. Any non-2xx response is an error so the caller
// can reschedule the delivery.
func (d *Deliverer) Deliver(ctx context.Context, rec outbox.Record) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload{
		EventType: rec.EventType,
		EntityID:  rec.EntityID.String(),
		NewState:  rec.NewState,
		Timestamp: rec.OccurredAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.targetURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.WebhookDelivery(rec.EventType, rec.EntityID.String(), rec.Attempts, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("webhook target returned status %d", resp.StatusCode)
		d.log.WebhookDelivery(rec.EventType, rec.EntityID.String(), rec.Attempts, err)
		return err
	}

	d.log.WebhookDelivery(rec.EventType, rec.EntityID.String(), rec.Attempts, nil)
	return nil
}
