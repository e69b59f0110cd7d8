package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/flowbit/support-platform/internal/adapters/primary/http"
	"github.com/flowbit/support-platform/internal/adapters/primary/http/middleware"
	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/mocks"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// withIdentity injects a resolved identity the way the auth middleware does.
func withIdentity(identity *domain.Identity, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity != nil {
			ctx := context.WithValue(r.Context(), middleware.IdentityKey, identity)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func newTicketServer(t *testing.T, identity *domain.Identity) (*httptest.Server, *mocks.MockTicketService) {
	t.Helper()
	svc := mocks.NewMockTicketService()
	handler := httpadapter.NewTicketHandler(svc, httpadapter.NewErrorHandler(testLogger()), testLogger())
	server := httptest.NewServer(withIdentity(identity, handler.Router()))
	t.Cleanup(server.Close)
	return server, svc
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func sampleTicket(id int64, tenantID string) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		TenantID:    tenantID,
		Title:       "t",
		Description: "d",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityMedium,
		CreatedBy:   uuid.New(),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func TestTicketHandler_MissingIdentity(t *testing.T) {
	server, svc := newTicketServer(t, nil)

	resp := doJSON(t, http.MethodGet, server.URL+"/", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	svc.AssertNotCalled(t, "ListTickets", mock.Anything, mock.Anything)
}

func TestTicketHandler_CreateTicket(t *testing.T) {
	identity := &domain.Identity{UserID: uuid.New(), TenantID: "tenant-a", Role: domain.RoleUser}

	t.Run("valid request returns 201", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("CreateTicket", mock.Anything, mock.MatchedBy(func(params ports.CreateTicketParams) bool {
			return params.Actor.TenantID == "tenant-a" &&
				params.Title == "Printer down" &&
				params.Priority == domain.PriorityHigh
		})).Return(sampleTicket(1, "tenant-a"), nil)

		resp := doJSON(t, http.MethodPost, server.URL+"/", map[string]any{
			"title":       "Printer down",
			"description": "3rd floor",
			"priority":    "High",
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("missing title returns field errors", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		resp := doJSON(t, http.MethodPost, server.URL+"/", map[string]any{
			"description": "3rd floor",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var body httpadapter.ValidationErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
		assert.Contains(t, body.Fields, "title")
		svc.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
	})

	t.Run("unknown priority rejected", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		resp := doJSON(t, http.MethodPost, server.URL+"/", map[string]any{
			"title":       "t",
			"description": "d",
			"priority":    "Urgent",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		svc.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
	})
}

func TestTicketHandler_GetTicket(t *testing.T) {
	identity := &domain.Identity{UserID: uuid.New(), TenantID: "tenant-a", Role: domain.RoleAdmin}

	t.Run("found ticket is returned", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("GetTicket", mock.Anything, *identity, int64(7)).
			Return(sampleTicket(7, "tenant-a"), nil)

		resp := doJSON(t, http.MethodGet, server.URL+"/7", nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var dto httpadapter.TicketDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&dto))
		assert.Equal(t, int64(7), dto.ID)
	})

	t.Run("out-of-scope ticket maps to 404", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("GetTicket", mock.Anything, *identity, int64(8)).
			Return(nil, apperrors.ErrTicketNotFound)

		resp := doJSON(t, http.MethodGet, server.URL+"/8", nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("non-numeric id is a bad request", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		resp := doJSON(t, http.MethodGet, server.URL+"/abc", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		svc.AssertNotCalled(t, "GetTicket", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTicketHandler_UpdateTicket(t *testing.T) {
	identity := &domain.Identity{UserID: uuid.New(), TenantID: "tenant-a", Role: domain.RoleAdmin}

	t.Run("absent assignedTo leaves the assignment untouched", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(params ports.UpdateTicketParams) bool {
			return params.TicketID == 9 &&
				params.Update.Status != nil && *params.Update.Status == domain.StatusResolved &&
				!params.Update.AssignedTo.Set
		})).Return(sampleTicket(9, "tenant-a"), nil)

		resp := doJSON(t, http.MethodPut, server.URL+"/9", map[string]any{
			"status": "Resolved",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("explicit null clears the assignment", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(params ports.UpdateTicketParams) bool {
			return params.Update.AssignedTo.Set && params.Update.AssignedTo.Value == nil
		})).Return(sampleTicket(9, "tenant-a"), nil)

		resp := doJSON(t, http.MethodPut, server.URL+"/9", map[string]any{
			"assignedTo": nil,
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("uuid string sets the assignment", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)
		assignee := uuid.New()

		svc.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(params ports.UpdateTicketParams) bool {
			return params.Update.AssignedTo.Set &&
				params.Update.AssignedTo.Value != nil &&
				*params.Update.AssignedTo.Value == assignee
		})).Return(sampleTicket(9, "tenant-a"), nil)

		resp := doJSON(t, http.MethodPut, server.URL+"/9", map[string]any{
			"assignedTo": assignee.String(),
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("malformed assignee uuid rejected", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		resp := doJSON(t, http.MethodPut, server.URL+"/9", map[string]any{
			"assignedTo": "not-a-uuid",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		svc.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
	})

	t.Run("forbidden maps to 403", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("UpdateTicket", mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrForbidden)

		resp := doJSON(t, http.MethodPut, server.URL+"/9", map[string]any{
			"status": "Closed",
		})

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("empty change set maps to 400", func(t *testing.T) {
		server, svc := newTicketServer(t, identity)

		svc.On("UpdateTicket", mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrEmptyUpdate)

		resp := doJSON(t, http.MethodPut, server.URL+"/9", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
