package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flowbit/support-platform/internal/core/ports"
)

// secretHeader matches the header the webhook ingress expects on the inbound
// side; the engine echoes the same secret both ways.
const secretHeader = "X-Webhook-Secret"

// triggerPayload is the JSON body posted to the engine's ticket-created hook.
type triggerPayload struct {
	TicketID       string `json:"ticketId"`
	TenantID       string `json:"customerId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	CreatedByEmail string `json:"createdBy"`
}

// triggerResponse is the only successful response shape consumed. Anything
// else is treated as "no run id available", not as an error.
type triggerResponse struct {
	WorkflowID string `json:"workflowId"`
}

// EngineClient is the outbound HTTP adapter to the external workflow engine.
type EngineClient struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

var _ ports.WorkflowTrigger = (*EngineClient)(nil)

// NewEngineClient creates a client for the engine's ticket-created hook. The
// timeout bounds the whole request; callers additionally pass a context with
// their own deadline.
func NewEngineClient(url, secret string, timeout time.Duration, logger *slog.Logger) *EngineClient {
	return &EngineClient{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "workflow_engine"),
	}
}

// TriggerTicketCreated notifies the engine that a ticket was created and
// returns the run id the engine acknowledges with, if any.
func (c *EngineClient) TriggerTicketCreated(ctx context.Context, params ports.WorkflowTriggerParams) (string, error) {
	payload := triggerPayload{
		TicketID:       strconv.FormatInt(params.TicketID, 10),
		TenantID:       params.TenantID,
		Title:          params.Title,
		Description:    params.Description,
		Priority:       string(params.Priority),
		CreatedByEmail: params.CreatedByEmail,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal trigger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("trigger workflow engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("workflow engine returned status %d", resp.StatusCode)
	}

	var result triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Debug("workflow engine response not parseable, continuing without run id",
			"error", err,
		)
		return "", nil
	}

	return result.WorkflowID, nil
}
