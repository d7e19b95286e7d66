// Package notification delivers outbound lifecycle notifications.
// Notifications are dispatched to configured channels (log, webhook) and are
// strictly fire-and-forget: delivery failures are recorded in the dispatch
// results and logged, never raised to the caller.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/rkoval/taskforge/internal/debug"
)

// Kind categorizes an outbound notification.
type Kind string

// Notification kind constants
const (
	KindTaskAvailable     Kind = "task_available"
	KindAdminAction       Kind = "admin_action"
	KindUserReviewRequest Kind = "user_review_request"
)

// Payload is the wire shape delivered to channels.
type Payload struct {
	Kind        Kind      `json:"kind"`
	ItemID      string    `json:"item_id"`
	ItemTitle   string    `json:"item_title"`
	Project     string    `json:"project,omitempty"`
	Users       []string  `json:"users"`
	Reason      string    `json:"reason,omitempty"`
	ParentTitle string    `json:"parent_title,omitempty"` // set when the item is a subtask
	SentAt      time.Time `json:"sent_at"`
}

// DispatchResult records the outcome of one channel delivery.
type DispatchResult struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher sends notifications to its configured channels. The zero set
// of channels degrades to log-only delivery.
type Dispatcher struct {
	webhookURL string
	httpClient *http.Client
}

// NewDispatcher creates a dispatcher. webhookURL may be empty, in which
// case only the log channel is used.
func NewDispatcher(webhookURL string) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Dispatch sends a payload to every configured channel concurrently and
// returns the per-channel outcomes. It never returns an error: failures
// are carried in the results.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *Payload) []DispatchResult {
	if payload.SentAt.IsZero() {
		payload.SentAt = time.Now()
	}

	channels := []string{"log"}
	if d.webhookURL != "" {
		channels = append(channels, "webhook")
	}

	results := make([]DispatchResult, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = d.dispatchToChannel(gctx, payload, ch)
			return nil // channel failures never abort the group
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if !r.Success {
			debug.Logf("notification: %s delivery failed: %s\n", r.Channel, r.Error)
		}
	}
	return results
}

// dispatchToChannel sends a notification to a specific channel.
func (d *Dispatcher) dispatchToChannel(ctx context.Context, payload *Payload, channel string) DispatchResult {
	result := DispatchResult{Channel: channel}

	switch channel {
	case "log":
		d.logNotification(payload)
		result.Success = true

	case "webhook":
		err := d.sendWebhook(ctx, payload)
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
		}

	default:
		result.Error = fmt.Sprintf("unknown channel type: %s", channel)
	}

	return result
}

// logNotification writes the notification to the debug log.
func (d *Dispatcher) logNotification(payload *Payload) {
	debug.Logf("notification: %s %s (%s) -> %v reason=%s\n",
		payload.Kind, payload.ItemID, payload.ItemTitle, payload.Users, payload.Reason)
}

// webhookMaxElapsed bounds webhook retry time. Deliveries that cannot
// complete within this window are dropped (fire-and-forget).
const webhookMaxElapsed = 15 * time.Second

func newWebhookBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = webhookMaxElapsed
	return bo
}

// sendWebhook POSTs the payload, retrying transient failures.
func (d *Dispatcher) sendWebhook(ctx context.Context, payload *Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Taskforge-Event", string(payload.Kind))

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err) // retryable
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode) // retryable
		}
		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body)))
		}
		return nil
	}, backoff.WithContext(newWebhookBackoff(), ctx))
}
