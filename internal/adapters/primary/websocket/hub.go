package websocket

import (
	"log/slog"
	"sync"

	"github.com/flowbit/support-platform/internal/core/domain"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// Hub maintains tenant-partitioned groups of connected clients and fans
// domain events out to exactly the group of the event's tenant. Group
// membership is the isolation mechanism: there is no consumer-side filtering.
//
// The mutex guards only map mutation. Publish copies the member list under a
// read lock and delivers outside it, so publishes for different tenants never
// serialize on payload delivery.
type Hub struct {
	// tenants maps tenant IDs to the set of currently connected clients.
	tenants map[string]map[*Client]bool

	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		tenants: make(map[string]map[*Client]bool),
		logger:  logger.With("component", "websocket_hub"),
	}
}

// Join adds the client to the given tenant's group. A client belongs to at
// most one group: joining with a different tenant replaces the membership.
func (h *Hub) Join(client *Client, tenantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.tenantID != "" && client.tenantID != tenantID {
		h.removeLocked(client)
	}
	client.tenantID = tenantID

	if h.tenants[tenantID] == nil {
		h.tenants[tenantID] = make(map[*Client]bool)
	}
	h.tenants[tenantID][client] = true

	h.logger.Info("client joined tenant group",
		"user_id", client.UserID,
		"tenant_id", tenantID,
		"group_size", len(h.tenants[tenantID]),
	)
}

// Leave removes the client from whichever group it belongs to and marks it
// disconnected. Calling it on an already-removed client is a no-op.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	h.removeLocked(client)
	h.mu.Unlock()

	client.disconnect()
}

func (h *Hub) removeLocked(client *Client) {
	group, ok := h.tenants[client.tenantID]
	if !ok {
		return
	}
	if _, exists := group[client]; !exists {
		return
	}
	delete(group, client)
	if len(group) == 0 {
		delete(h.tenants, client.tenantID)
	}

	h.logger.Info("client left tenant group",
		"user_id", client.UserID,
		"tenant_id", client.tenantID,
	)
}

// Publish delivers the event to every client currently joined to the event's
// tenant group. Delivery is best-effort: a client whose send buffer is full
// is unregistered rather than blocking the publish.
func (h *Hub) Publish(event domain.Event) error {
	h.mu.RLock()
	group, ok := h.tenants[event.TenantID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}

	// Copy the member list so delivery happens outside the lock.
	clients := make([]*Client, 0, len(group))
	for client := range group {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("publishing event",
		"event_type", event.Type,
		"tenant_id", event.TenantID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case <-client.done:
			// The client left between the snapshot and delivery.
		case client.Send <- event:
		default:
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
				"tenant_id", event.TenantID,
			)
			go h.Leave(client)
		}
	}

	return nil
}

// GroupSize returns the number of clients joined to a tenant's group.
func (h *Hub) GroupSize(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, group := range h.tenants {
		count += len(group)
	}
	return count
}
