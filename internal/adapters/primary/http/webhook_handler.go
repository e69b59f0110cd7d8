package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// WebhookSecretHeader carries the shared secret on every workflow-engine
// callback.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler accepts status callbacks from the external workflow engine.
// The shared-secret check runs before the body is read so that a caller
// without the secret learns nothing from response differentiation.
type WebhookHandler struct {
	webhookService ports.WebhookService
	secret         string
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService ports.WebhookService, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		secret:         secret,
		logger:         logger.With("handler", "webhook"),
	}
}

// Router sets up a new chi Router for the webhook endpoints.
func (h *WebhookHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the webhook endpoints.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ticket-done", h.HandleTicketDone)
	r.Post("/tenant-status", h.HandleTenantStatus)
}

// --- Request/Response DTOs ---

// TicketDoneRequest is the ticket-status callback payload. TicketID is
// decoded leniently since the engine may echo it back as a string or number.
type TicketDoneRequest struct {
	TicketID       json.RawMessage `json:"ticketId"`
	CustomerID     string          `json:"customerId"`
	Status         string          `json:"status"`
	WorkflowResult map[string]any  `json:"workflowResult"`
}

// TenantStatusRequest is the tenant-status callback payload.
type TenantStatusRequest struct {
	CustomerID string         `json:"customerId"`
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details"`
}

// WebhookResponse is the success envelope every webhook endpoint returns.
type WebhookResponse struct {
	Success      bool `json:"success"`
	Ticket       any  `json:"ticket,omitempty"`
	StatusUpdate any  `json:"statusUpdate,omitempty"`
}

// WebhookErrorResponse is the failure envelope.
type WebhookErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// --- Handlers ---

// HandleTicketDone handles POST /webhook/ticket-done
func (h *WebhookHandler) HandleTicketDone(w http.ResponseWriter, r *http.Request) {
	if !h.authenticate(w, r) {
		return
	}

	var req TicketDoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "BAD_REQUEST")
		return
	}

	ticketID, err := parseLenientID(req.TicketID)
	if err != nil || req.CustomerID == "" {
		h.writeError(w, http.StatusBadRequest, "ticketId and customerId are required", "BAD_REQUEST")
		return
	}

	// The engine may omit status on intermediate callbacks; those mark the
	// ticket as picked up.
	status := req.Status
	if status == "" {
		status = string(domain.StatusInProgress)
	}

	callback := ports.TicketStatusCallback{
		TicketID:       ticketID,
		TenantID:       req.CustomerID,
		Status:         domain.TicketStatus(status),
		WorkflowResult: req.WorkflowResult,
	}

	ticket, err := h.webhookService.ApplyTicketStatus(r.Context(), callback)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("webhook ticket status applied",
		"ticket_id", ticketID,
		"tenant_id", req.CustomerID,
		"status", req.Status,
	)

	WriteJSON(w, http.StatusOK, WebhookResponse{Success: true, Ticket: toTicketDTO(ticket)})
}

// HandleTenantStatus handles POST /webhook/tenant-status
func (h *WebhookHandler) HandleTenantStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authenticate(w, r) {
		return
	}

	var req TenantStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "BAD_REQUEST")
		return
	}

	if req.CustomerID == "" || req.Status == "" || req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "customerId, status and message are required", "BAD_REQUEST")
		return
	}

	callback := ports.TenantStatusCallback{
		TenantID: req.CustomerID,
		Status:   domain.TenantStatus(req.Status),
		Message:  req.Message,
		Details:  req.Details,
	}

	event, err := h.webhookService.PublishTenantStatus(r.Context(), callback)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("tenant status broadcast",
		"tenant_id", req.CustomerID,
		"status", req.Status,
	)

	WriteJSON(w, http.StatusOK, WebhookResponse{Success: true, StatusUpdate: event})
}

// --- Helper methods ---

// authenticate performs the exact-match shared-secret check. It runs before
// any body parsing.
func (h *WebhookHandler) authenticate(w http.ResponseWriter, r *http.Request) bool {
	provided := r.Header.Get(WebhookSecretHeader)
	if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		h.logger.Warn("webhook rejected: secret mismatch",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		h.writeError(w, http.StatusForbidden, "Invalid webhook secret", "INVALID_WEBHOOK_SECRET")
		return false
	}
	return true
}

func (h *WebhookHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "An unexpected error occurred"
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound):
		status, message, code = http.StatusNotFound, "Ticket not found", "TICKET_NOT_FOUND"
	case errors.Is(err, apperrors.ErrTenantNotFound):
		status, message, code = http.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND"
	case errors.Is(err, apperrors.ErrInvalidStatus), errors.Is(err, apperrors.ErrInvalidTenantStatus):
		status, message, code = http.StatusBadRequest, err.Error(), "VALIDATION_ERROR"
	}

	logAttrs := []any{
		"path", r.URL.Path,
		"status_code", status,
		"error", err.Error(),
	}
	if status >= 500 {
		h.logger.Error("webhook processing failed", logAttrs...)
	} else {
		h.logger.Warn("webhook rejected", logAttrs...)
	}

	h.writeError(w, status, message, code)
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, status int, message, code string) {
	WriteJSON(w, status, WebhookErrorResponse{Success: false, Error: message, Code: code})
}

// parseLenientID accepts a JSON number or a numeric string.
func parseLenientID(raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, apperrors.ErrBadRequest
	}
	trimmed = strings.Trim(trimmed, `"`)
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ErrBadRequest
	}
	return id, nil
}
