package workflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbit/support-platform/internal/core/domain"
	"github.com/flowbit/support-platform/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func triggerParams() ports.WorkflowTriggerParams {
	return ports.WorkflowTriggerParams{
		TicketID:       42,
		TenantID:       "tenant-a",
		Title:          "Printer down",
		Description:    "3rd floor",
		Priority:       domain.PriorityHigh,
		CreatedByEmail: "user@a.test",
	}
}

func TestEngineClient_TriggerTicketCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the payload with the shared secret", func(t *testing.T) {
		var received map[string]any
		var secret string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret = r.Header.Get("X-Webhook-Secret")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"workflowId":"run-42"}`))
		}))
		defer server.Close()

		client := NewEngineClient(server.URL, "s3cret", 5*time.Second, testLogger())
		runID, err := client.TriggerTicketCreated(ctx, triggerParams())

		require.NoError(t, err)
		assert.Equal(t, "run-42", runID)
		assert.Equal(t, "s3cret", secret)
		// The ticket id crosses the wire as a string.
		assert.Equal(t, "42", received["ticketId"])
		assert.Equal(t, "tenant-a", received["customerId"])
		assert.Equal(t, "user@a.test", received["createdBy"])
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewEngineClient(server.URL, "s3cret", 5*time.Second, testLogger())
		_, err := client.TriggerTicketCreated(ctx, triggerParams())

		assert.Error(t, err)
	})

	t.Run("unparseable success body means no run id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ACCEPTED"))
		}))
		defer server.Close()

		client := NewEngineClient(server.URL, "s3cret", 5*time.Second, testLogger())
		runID, err := client.TriggerTicketCreated(ctx, triggerParams())

		require.NoError(t, err)
		assert.Empty(t, runID)
	})

	t.Run("cancelled context aborts the trigger", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		client := NewEngineClient(server.URL, "s3cret", 5*time.Second, testLogger())
		_, err := client.TriggerTicketCreated(cancelled, triggerParams())

		assert.Error(t, err)
	})
}
