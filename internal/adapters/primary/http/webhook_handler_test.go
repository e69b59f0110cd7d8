package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/flowbit/support-platform/internal/adapters/primary/http"
	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/mocks"
	"github.com/flowbit/support-platform/internal/core/ports"
)

const testSecret = "shared-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWebhookServer(t *testing.T) (*httptest.Server, *mocks.MockWebhookService) {
	t.Helper()
	svc := mocks.NewMockWebhookService()
	handler := httpadapter.NewWebhookHandler(svc, testSecret, testLogger())
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return server, svc
}

func postWebhook(t *testing.T, url, secret string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(httpadapter.WebhookSecretHeader, secret)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeWebhookError(t *testing.T, resp *http.Response) httpadapter.WebhookErrorResponse {
	t.Helper()
	var body httpadapter.WebhookErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWebhookHandler_SecretCheck(t *testing.T) {
	t.Run("missing secret is forbidden", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		resp := postWebhook(t, server.URL+"/ticket-done", "", map[string]any{
			"ticketId": 1, "customerId": "tenant-a", "status": "Resolved",
		})

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeWebhookError(t, resp)
		assert.False(t, body.Success)
		assert.Equal(t, "INVALID_WEBHOOK_SECRET", body.Code)
		svc.AssertNotCalled(t, "ApplyTicketStatus", mock.Anything, mock.Anything)
	})

	t.Run("wrong secret is forbidden", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		resp := postWebhook(t, server.URL+"/tenant-status", "wrong", map[string]any{
			"customerId": "tenant-a", "status": "Operational", "message": "ok",
		})

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		svc.AssertNotCalled(t, "PublishTenantStatus", mock.Anything, mock.Anything)
	})
}

func TestWebhookHandler_TicketDone(t *testing.T) {
	t.Run("missing ticketId is a bad request", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		resp := postWebhook(t, server.URL+"/ticket-done", testSecret, map[string]any{
			"customerId": "tenant-a", "status": "Resolved",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		svc.AssertNotCalled(t, "ApplyTicketStatus", mock.Anything, mock.Anything)
	})

	t.Run("missing customerId is a bad request", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		resp := postWebhook(t, server.URL+"/ticket-done", testSecret, map[string]any{
			"ticketId": 1, "status": "Resolved",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		svc.AssertNotCalled(t, "ApplyTicketStatus", mock.Anything, mock.Anything)
	})

	t.Run("string ticketId is accepted", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		ticket := &domain.Ticket{
			ID:        42,
			TenantID:  "tenant-a",
			Title:     "t",
			Status:    domain.StatusResolved,
			Priority:  domain.PriorityMedium,
			CreatedBy: uuid.New(),
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		svc.On("ApplyTicketStatus", mock.Anything, ports.TicketStatusCallback{
			TicketID: 42,
			TenantID: "tenant-a",
			Status:   domain.StatusResolved,
		}).Return(ticket, nil)

		resp := postWebhook(t, server.URL+"/ticket-done", testSecret, map[string]any{
			"ticketId": "42", "customerId": "tenant-a", "status": "Resolved",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["success"])
		svc.AssertExpectations(t)
	})

	t.Run("missing status defaults to In Progress", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		ticket := &domain.Ticket{
			ID:        7,
			TenantID:  "tenant-a",
			Title:     "t",
			Status:    domain.StatusInProgress,
			Priority:  domain.PriorityMedium,
			CreatedBy: uuid.New(),
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		svc.On("ApplyTicketStatus", mock.Anything, ports.TicketStatusCallback{
			TicketID: 7,
			TenantID: "tenant-a",
			Status:   domain.StatusInProgress,
		}).Return(ticket, nil)

		resp := postWebhook(t, server.URL+"/ticket-done", testSecret, map[string]any{
			"ticketId": 7, "customerId": "tenant-a",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("unknown ticket maps to 404", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		svc.On("ApplyTicketStatus", mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrTicketNotFound)

		resp := postWebhook(t, server.URL+"/ticket-done", testSecret, map[string]any{
			"ticketId": 99, "customerId": "tenant-b", "status": "Resolved",
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeWebhookError(t, resp)
		assert.Equal(t, "TICKET_NOT_FOUND", body.Code)
	})

	t.Run("invalid status maps to 400", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		svc.On("ApplyTicketStatus", mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrInvalidStatus)

		resp := postWebhook(t, server.URL+"/ticket-done", testSecret, map[string]any{
			"ticketId": 1, "customerId": "tenant-a", "status": "Done",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeWebhookError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
	})
}

func TestWebhookHandler_TenantStatus(t *testing.T) {
	t.Run("missing message is a bad request", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		resp := postWebhook(t, server.URL+"/tenant-status", testSecret, map[string]any{
			"customerId": "tenant-a", "status": "Degraded",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		svc.AssertNotCalled(t, "PublishTenantStatus", mock.Anything, mock.Anything)
	})

	t.Run("success returns the broadcast event", func(t *testing.T) {
		server, svc := newWebhookServer(t)

		event := &domain.TenantStatusEvent{
			TenantID:   "tenant-a",
			TenantName: "LogisticsCo",
			Status:     domain.TenantDegraded,
			Message:    "elevated latency",
			Timestamp:  time.Now().UTC(),
		}
		svc.On("PublishTenantStatus", mock.Anything, ports.TenantStatusCallback{
			TenantID: "tenant-a",
			Status:   domain.TenantDegraded,
			Message:  "elevated latency",
		}).Return(event, nil)

		resp := postWebhook(t, server.URL+"/tenant-status", testSecret, map[string]any{
			"customerId": "tenant-a", "status": "Degraded", "message": "elevated latency",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["success"])
		assert.NotNil(t, body["statusUpdate"])
		svc.AssertExpectations(t)
	})
}
