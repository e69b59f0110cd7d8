package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowbit/support-platform/internal/core/domain"
)

// TicketQuery identifies a single ticket under a mandatory tenant filter.
// CreatedBy, when set, additionally restricts the lookup to tickets created
// by that user (the role=User read scope).
type TicketQuery struct {
	TenantID  string
	TicketID  int64
	CreatedBy *uuid.UUID
}

// TicketListQuery scopes a listing. TenantID is mandatory; CreatedBy applies
// the role=User creator restriction when set.
type TicketListQuery struct {
	TenantID  string
	CreatedBy *uuid.UUID
}

// TicketRepository is the persistence port for tickets. There is no operation
// that queries across tenants: every method takes or carries a tenant id and
// the implementation must conjoin it into the filter.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, query TicketQuery) (*domain.Ticket, error)
	List(ctx context.Context, query TicketListQuery) ([]*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	SetWorkflowRunID(ctx context.Context, tenantID string, ticketID int64, runID string) error
}

// UserRepository is the persistence port for users. GetByEmail is reserved
// for provisioning; every request-path lookup is tenant-scoped.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FirstByTenant(ctx context.Context, tenantID string) (*domain.User, error)
}

// AuditLogRepository is the append-only persistence port for audit entries.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.AuditEntry, error)
}
