package domain

import "time"

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketUpdated       EventType = "ticket.updated"
	EventTenantStatusUpdated EventType = "tenant.status.updated"
)

// Event is the payload delivered over WebSocket. TenantID routes the event to
// the originating tenant's subscriber group and never appears outside it.
type Event struct {
	Type     EventType   `json:"type"`
	TenantID string      `json:"tenantId"`
	Payload  interface{} `json:"payload"`
}

// TenantStatus is the health classification reported by the workflow engine.
type TenantStatus string

const (
	TenantOperational TenantStatus = "Operational"
	TenantMaintenance TenantStatus = "Maintenance"
	TenantDegraded    TenantStatus = "Degraded"
	TenantCritical    TenantStatus = "Critical"
)

// ValidTenantStatus reports whether s is a known tenant status.
func ValidTenantStatus(s TenantStatus) bool {
	switch s {
	case TenantOperational, TenantMaintenance, TenantDegraded, TenantCritical:
		return true
	}
	return false
}

// TenantStatusEvent is transient: it exists only in the broadcast channel and
// is never persisted. Timestamp is server-assigned at ingestion.
type TenantStatusEvent struct {
	TenantID   string         `json:"tenantId"`
	TenantName string         `json:"tenantName,omitempty"`
	Status     TenantStatus   `json:"status"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
