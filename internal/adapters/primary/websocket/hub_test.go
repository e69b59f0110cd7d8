package websocket

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbit/support-platform/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(h *Hub) *Client {
	// No pumps run in these tests, so the connection stays nil.
	return NewClient(h, nil, uuid.New(), testLogger())
}

func drain(c *Client) []domain.Event {
	var events []domain.Event
	for {
		select {
		case event := <-c.Send:
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestHub_PublishIsTenantScoped(t *testing.T) {
	h := NewHub(testLogger())

	clientA1 := newTestClient(h)
	clientA2 := newTestClient(h)
	clientB := newTestClient(h)

	h.Join(clientA1, "tenant-a")
	h.Join(clientA2, "tenant-a")
	h.Join(clientB, "tenant-b")

	require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-a"}))

	assert.Len(t, drain(clientA1), 1)
	assert.Len(t, drain(clientA2), 1)
	assert.Empty(t, drain(clientB))
}

func TestHub_PublishUnknownTenantIsNoop(t *testing.T) {
	h := NewHub(testLogger())

	client := newTestClient(h)
	h.Join(client, "tenant-a")

	require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-ghost"}))
	assert.Empty(t, drain(client))
}

func TestHub_JoinReplacesMembership(t *testing.T) {
	h := NewHub(testLogger())

	client := newTestClient(h)
	h.Join(client, "tenant-a")
	h.Join(client, "tenant-b")

	assert.Equal(t, 0, h.GroupSize("tenant-a"))
	assert.Equal(t, 1, h.GroupSize("tenant-b"))

	require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-a"}))
	assert.Empty(t, drain(client))

	require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-b"}))
	assert.Len(t, drain(client), 1)
}

func TestHub_LeaveIsIdempotent(t *testing.T) {
	h := NewHub(testLogger())

	client := newTestClient(h)
	h.Join(client, "tenant-a")

	h.Leave(client)
	h.Leave(client)

	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, client.disconnected())

	// Publishing after the leave skips the departed client.
	require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-a"}))
	assert.Empty(t, drain(client))
}

func TestHub_PublishWhileClientsLeave(t *testing.T) {
	h := NewHub(testLogger())

	const clientCount = 200
	clients := make([]*Client, 0, clientCount)
	for i := 0; i < clientCount; i++ {
		client := newTestClient(h)
		h.Join(client, "tenant-a")
		clients = append(clients, client)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, client := range clients {
			h.Leave(client)
		}
	}()

	// Disconnects racing the delivery loop must never fail a publish.
	require.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketUpdated, TenantID: "tenant-a"}))
		}
	})

	wg.Wait()
	assert.Equal(t, 0, h.GroupSize("tenant-a"))
}

func TestHub_SlowClientIsUnregistered(t *testing.T) {
	h := NewHub(testLogger())

	slow := newTestClient(h)
	h.Join(slow, "tenant-a")

	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- domain.Event{Type: domain.EventTicketUpdated, TenantID: "tenant-a"}
	}

	require.NoError(t, h.Publish(domain.Event{Type: domain.EventTicketUpdated, TenantID: "tenant-a"}))

	assert.Eventually(t, func() bool {
		return h.GroupSize("tenant-a") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ConcurrentPublishes(t *testing.T) {
	h := NewHub(testLogger())

	clientA := newTestClient(h)
	clientB := newTestClient(h)
	h.Join(clientA, "tenant-a")
	h.Join(clientB, "tenant-b")

	const perTenant = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perTenant; i++ {
			_ = h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-a"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perTenant; i++ {
			_ = h.Publish(domain.Event{Type: domain.EventTicketCreated, TenantID: "tenant-b"})
		}
	}()
	wg.Wait()

	eventsA := drain(clientA)
	eventsB := drain(clientB)
	assert.Len(t, eventsA, perTenant)
	assert.Len(t, eventsB, perTenant)
	for _, event := range append(eventsA, eventsB...) {
		assert.Equal(t, domain.EventTicketCreated, event.Type)
	}
}
