package cron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookCeiling is the hard timeout on webhook delivery (§5).
const WebhookCeiling = 10 * time.Second

// DeliveryResult is the Webhook Deliverer's outcome.
type DeliveryResult struct {
	Delivered bool
	Error     string
}

type webhookBody struct {
	JobID      string `json:"jobId"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
}

// webhookClient is hardened against redirect-based SSRF: redirects are not
// auto-followed, and the body is capped regardless of the server's
// Content-Length claim.
var webhookClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

const maxWebhookResponseBytes = 64 * 1024

// deliverWebhook POSTs a job's run outcome to its configured webhook URL.
// It is only ever called when job.Delivery.Mode == DeliveryWebhook.
func deliverWebhook(ctx context.Context, job Job, outcome RunOutcome, token string) DeliveryResult {
	ctx, span := startWebhookSpan(ctx, job)
	defer span.End()

	target := job.Delivery.To

	ctx, cancel := context.WithTimeout(ctx, WebhookCeiling)
	defer cancel()

	u, err := validateWebhookURL(ctx, target)
	if err != nil {
		return DeliveryResult{Delivered: false, Error: "invalid webhook url"}
	}

	body := webhookBody{
		JobID:      job.ID,
		Name:       job.Name,
		Status:     string(outcome.Status),
		Summary:    outcome.Summary,
		Error:      outcome.Error,
		SessionID:  outcome.SessionID,
		SessionKey: outcome.SessionKey,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return DeliveryResult{Delivered: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return DeliveryResult{Delivered: false, Error: err.Error()}
	}
	req.Header.Set("content-type", "application/json")
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}

	resp, err := webhookClient.Do(req)
	if err != nil {
		return DeliveryResult{Delivered: false, Error: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxWebhookResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DeliveryResult{Delivered: false, Error: fmt.Sprintf("webhook failed: %d", resp.StatusCode)}
	}
	return DeliveryResult{Delivered: true}
}
