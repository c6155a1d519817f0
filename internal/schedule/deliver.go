package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// webhookPayload is the JSON body posted to the briefing webhook. The shape
// matches what Discord-compatible webhooks accept.
type webhookPayload struct {
	Target  string `json:"target"`
	Content string `json:"content"`
}

// NewWebhookDeliverer returns a DeliverFunc that POSTs rendered briefings to
// url as JSON. A nil client falls back to a 30s-timeout default.
func NewWebhookDeliverer(url string, client *http.Client) DeliverFunc {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, target, text string) error {
		body, err := json.Marshal(webhookPayload{Target: target, Content: text})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("webhook returned %s", resp.Status)
		}
		return nil
	}
}

// NewLogDeliverer returns a DeliverFunc that writes briefings to the log
// instead of a webhook. Used when no webhook URL is configured.
func NewLogDeliverer(logger zerolog.Logger) DeliverFunc {
	return func(_ context.Context, target, text string) error {
		logger.Info().
			Str("target", target).
			Int("chars", len(text)).
			Msg("briefing composed (no webhook configured)")
		return nil
	}
}
