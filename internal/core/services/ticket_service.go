package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// DefaultWorkflowTimeout bounds the outbound trigger to the workflow engine.
const DefaultWorkflowTimeout = 5 * time.Second

// TicketService implements the ticket lifecycle: create/read/update under the
// caller's tenant scope, with audit entries and real-time broadcasts as side
// channels. Authorization ordering is fixed: tenant isolation before role
// checks, role checks before field validation.
type TicketService struct {
	ticketRepo      ports.TicketRepository
	userRepo        ports.UserRepository
	audit           ports.AuditRecorder
	broadcaster     ports.EventBroadcaster
	workflow        ports.WorkflowTrigger
	tx              ports.TransactionManager
	workflowTimeout time.Duration
	logger          *slog.Logger
	wg              sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service.
func NewTicketService(
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	audit ports.AuditRecorder,
	broadcaster ports.EventBroadcaster,
	workflow ports.WorkflowTrigger,
	tx ports.TransactionManager,
	workflowTimeout time.Duration,
	logger *slog.Logger,
) *TicketService {
	if workflowTimeout <= 0 {
		workflowTimeout = DefaultWorkflowTimeout
	}
	return &TicketService{
		ticketRepo:      ticketRepo,
		userRepo:        userRepo,
		audit:           audit,
		broadcaster:     broadcaster,
		workflow:        workflow,
		tx:              tx,
		workflowTimeout: workflowTimeout,
		logger:          logger.With("component", "ticket_service"),
	}
}

// CreateTicket handles the use case for submitting a new ticket. The outbound
// workflow trigger is fire-and-forget: its failure never fails or rolls back
// the creation, and a run id arriving later is persisted as a secondary
// update.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticketParams := domain.TicketParams{
		TenantID:    params.Actor.TenantID,
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		CreatedBy:   params.Actor.UserID,
	}

	ticket, err := domain.NewTicket(ticketParams)
	if err != nil {
		return nil, err
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	actorID := params.Actor.UserID
	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.AuditTicketCreated,
		ActorUserID:  &actorID,
		TenantID:     created.TenantID,
		ResourceType: domain.ResourceTicket,
		ResourceID:   formatTicketID(created.ID),
		Details: map[string]any{
			"title":    created.Title,
			"priority": string(created.Priority),
		},
		IPAddress: params.Meta.IPAddress,
		UserAgent: params.Meta.UserAgent,
	})

	createdByEmail := s.lookupEmail(ctx, created.TenantID, created.CreatedBy)

	s.triggerWorkflow(created, createdByEmail)
	s.broadcastTicket(domain.EventTicketCreated, created, createdByEmail, "")

	return created, nil
}

// ListTickets returns the caller's tenant-scoped tickets newest-first. Role
// User additionally restricts the listing to tickets the caller created.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Identity) ([]*domain.Ticket, error) {
	query := ports.TicketListQuery{TenantID: actor.TenantID}
	if !actor.IsAdmin() {
		creator := actor.UserID
		query.CreatedBy = &creator
	}
	return s.ticketRepo.List(ctx, query)
}

// GetTicket retrieves a single ticket under the caller's scope. A ticket
// outside the tenant filter is indistinguishable from one that does not
// exist.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Identity, ticketID int64) (*domain.Ticket, error) {
	query := ports.TicketQuery{TenantID: actor.TenantID, TicketID: ticketID}
	if !actor.IsAdmin() {
		creator := actor.UserID
		query.CreatedBy = &creator
	}
	return s.ticketRepo.GetByID(ctx, query)
}

// UpdateTicket applies a partial update. The ticket is loaded under the
// tenant filter before the role check so that role-based errors cannot probe
// resources in other tenants.
func (s *TicketService) UpdateTicket(ctx context.Context, params ports.UpdateTicketParams) (*domain.Ticket, error) {
	var (
		updated     *domain.Ticket
		oldStatus   domain.TicketStatus
		oldPriority domain.TicketPriority
	)

	// The load and write share one transaction so a concurrent update cannot
	// interleave between them.
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.ticketRepo.GetByID(ctx, ports.TicketQuery{
			TenantID: params.Actor.TenantID,
			TicketID: params.TicketID,
		})
		if err != nil {
			return err
		}

		if !params.Actor.IsAdmin() {
			return apperrors.ErrForbidden
		}

		if params.Update.IsEmpty() {
			return apperrors.ErrEmptyUpdate
		}

		oldStatus = ticket.Status
		oldPriority = ticket.Priority

		if err := ticket.Apply(params.Update); err != nil {
			return err
		}

		updated, err = s.ticketRepo.Update(ctx, ticket)
		return err
	})
	if err != nil {
		return nil, err
	}

	actorID := params.Actor.UserID
	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.AuditTicketUpdated,
		ActorUserID:  &actorID,
		TenantID:     updated.TenantID,
		ResourceType: domain.ResourceTicket,
		ResourceID:   formatTicketID(updated.ID),
		Details: map[string]any{
			"oldStatus":   string(oldStatus),
			"newStatus":   string(updated.Status),
			"oldPriority": string(oldPriority),
			"newPriority": string(updated.Priority),
			"changes":     params.Changes,
		},
		IPAddress: params.Meta.IPAddress,
		UserAgent: params.Meta.UserAgent,
	})

	createdByEmail := s.lookupEmail(ctx, updated.TenantID, updated.CreatedBy)
	assignedToEmail := ""
	if updated.AssignedTo != nil {
		assignedToEmail = s.lookupEmail(ctx, updated.TenantID, *updated.AssignedTo)
	}
	s.broadcastTicket(domain.EventTicketUpdated, updated, createdByEmail, assignedToEmail)

	return updated, nil
}

// inTransaction runs fn inside the transaction manager when one is
// configured. Without one, fn runs against the plain connection.
func (s *TicketService) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}

// Shutdown waits for in-flight background work (workflow triggers).
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}

// triggerWorkflow fires the outbound trigger in the background with a bounded
// timeout. Its error path never shares a type with the creation path; the
// result is observed only to persist the run id.
func (s *TicketService) triggerWorkflow(ticket *domain.Ticket, createdByEmail string) {
	if s.workflow == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.workflowTimeout)
		defer cancel()

		runID, err := s.workflow.TriggerTicketCreated(ctx, ports.WorkflowTriggerParams{
			TicketID:       ticket.ID,
			TenantID:       ticket.TenantID,
			Title:          ticket.Title,
			Description:    ticket.Description,
			Priority:       ticket.Priority,
			CreatedByEmail: createdByEmail,
		})
		if err != nil {
			s.logger.Warn("workflow trigger failed",
				"ticket_id", ticket.ID,
				"tenant_id", ticket.TenantID,
				"error", err,
			)
			return
		}
		if runID == "" {
			return
		}

		if err := s.ticketRepo.SetWorkflowRunID(ctx, ticket.TenantID, ticket.ID, runID); err != nil {
			s.logger.Error("failed to persist workflow run id",
				"ticket_id", ticket.ID,
				"workflow_run_id", runID,
				"error", err,
			)
		}
	}()
}

// broadcastTicket publishes the display-form snapshot to the ticket's tenant
// group. Delivery is best-effort.
func (s *TicketService) broadcastTicket(eventType domain.EventType, ticket *domain.Ticket, createdByEmail, assignedToEmail string) {
	event := domain.Event{
		Type:     eventType,
		TenantID: ticket.TenantID,
		Payload:  domain.NewTicketSnapshot(ticket, createdByEmail, assignedToEmail),
	}
	if err := s.broadcaster.Publish(event); err != nil {
		s.logger.Warn("broadcast failed",
			"event_type", eventType,
			"tenant_id", ticket.TenantID,
			"error", err,
		)
	}
}

// lookupEmail resolves a user id to its email for display payloads. Failures
// fall back to the raw id in the snapshot.
func (s *TicketService) lookupEmail(ctx context.Context, tenantID string, userID uuid.UUID) string {
	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		s.logger.Debug("user lookup for display failed",
			"tenant_id", tenantID,
			"user_id", userID,
			"error", err,
		)
		return ""
	}
	return user.Email
}
