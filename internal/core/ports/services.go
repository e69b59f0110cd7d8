package ports

import (
	"context"

	"github.com/flowbit/support-platform/internal/core/domain"
)

// IdentityResolver resolves a bearer credential into a caller identity. It
// must reject before any tenant-scoped query executes.
type IdentityResolver interface {
	Resolve(ctx context.Context, bearerToken string) (*domain.Identity, error)
}

// RequestMeta carries transport-level metadata into audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Actor       domain.Identity
	Title       string
	Description string
	Priority    domain.TicketPriority
	Meta        RequestMeta
}

// UpdateTicketParams defines the input for a partial ticket update. Changes
// holds the raw requested change set for the audit trail.
type UpdateTicketParams struct {
	Actor    domain.Identity
	TicketID int64
	Update   domain.TicketUpdate
	Changes  map[string]any
	Meta     RequestMeta
}

// TicketService defines the core business operations for managing tickets.
// Tenant isolation is checked before role checks; role checks before
// field-level validation.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	ListTickets(ctx context.Context, actor domain.Identity) ([]*domain.Ticket, error)
	GetTicket(ctx context.Context, actor domain.Identity, ticketID int64) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, params UpdateTicketParams) (*domain.Ticket, error)
	Shutdown()
}

// TicketStatusCallback is the authenticated ticket-status payload from the
// workflow engine. TenantID is the tenant filter for the lookup.
type TicketStatusCallback struct {
	TicketID       int64
	TenantID       string
	Status         domain.TicketStatus
	WorkflowResult map[string]any
}

// TenantStatusCallback is the authenticated tenant-status payload from the
// workflow engine. Nothing is persisted for it.
type TenantStatusCallback struct {
	TenantID string
	Status   domain.TenantStatus
	Message  string
	Details  map[string]any
}

// WebhookService translates validated workflow-engine callbacks into store
// mutations and broadcasts.
type WebhookService interface {
	ApplyTicketStatus(ctx context.Context, callback TicketStatusCallback) (*domain.Ticket, error)
	PublishTenantStatus(ctx context.Context, callback TenantStatusCallback) (*domain.TenantStatusEvent, error)
}

// AuditRecorder appends audit entries. Failures are logged and swallowed:
// audit logging must never fail a user-facing operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// EventBroadcaster fans out domain events to the subscriber group of the
// event's tenant. Delivery is best-effort with no acknowledgment or replay.
type EventBroadcaster interface {
	Publish(event domain.Event) error
}

// WorkflowTriggerParams is the outbound payload sent to the workflow engine
// when a ticket is created.
type WorkflowTriggerParams struct {
	TicketID       int64
	TenantID       string
	Title          string
	Description    string
	Priority       domain.TicketPriority
	CreatedByEmail string
}

// WorkflowTrigger is the outbound port to the external workflow engine. The
// returned run id may be empty when the engine responds without one; any
// error is observed only for logging.
type WorkflowTrigger interface {
	TriggerTicketCreated(ctx context.Context, params WorkflowTriggerParams) (string, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
