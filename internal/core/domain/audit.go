package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit action tags.
const (
	AuditTicketCreated       = "ticket.created"
	AuditTicketUpdated       = "ticket.updated"
	AuditTicketWebhookUpdate = "ticket.webhook_update"
)

// Resource types recorded in audit entries.
const (
	ResourceTicket = "ticket"
)

// AuditEntry is an append-only record of a state-changing action, keyed by
// tenant. ActorUserID is nil for system- or webhook-originated actions.
type AuditEntry struct {
	ID           int64
	Action       string
	ActorUserID  *uuid.UUID
	TenantID     string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
