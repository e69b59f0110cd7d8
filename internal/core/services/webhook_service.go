package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// WebhookIngressService applies authenticated workflow-engine callbacks.
// Secret verification happens at the HTTP boundary; this service enforces the
// same tenant-isolation invariant the user-facing paths do, with the callback
// tenant id as the filter.
//
// Callbacks carry no delivery id, so at-least-once redelivery reapplies the
// same status (harmless) but appends a duplicate audit entry and re-broadcast
// each time.
type WebhookIngressService struct {
	ticketRepo  ports.TicketRepository
	userRepo    ports.UserRepository
	audit       ports.AuditRecorder
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.WebhookService = (*WebhookIngressService)(nil)

// NewWebhookIngressService creates a new webhook ingress service.
func NewWebhookIngressService(
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	audit ports.AuditRecorder,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.WebhookService {
	return &WebhookIngressService{
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		audit:       audit,
		broadcaster: broadcaster,
		logger:      logger.With("component", "webhook_ingress"),
	}
}

// ApplyTicketStatus writes the callback status onto the ticket
// (last-write-wins; the engine provides no ordering token), records the
// webhook audit entry with the ticket's creator as actor, and broadcasts the
// update to the ticket's tenant group.
func (s *WebhookIngressService) ApplyTicketStatus(ctx context.Context, callback ports.TicketStatusCallback) (*domain.Ticket, error) {
	if !domain.ValidStatus(callback.Status) {
		return nil, apperrors.ErrInvalidStatus
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ports.TicketQuery{
		TenantID: callback.TenantID,
		TicketID: callback.TicketID,
	})
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if err := ticket.SetStatus(callback.Status); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, err
	}

	creator := updated.CreatedBy
	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.AuditTicketWebhookUpdate,
		ActorUserID:  &creator,
		TenantID:     updated.TenantID,
		ResourceType: domain.ResourceTicket,
		ResourceID:   formatTicketID(updated.ID),
		Details: map[string]any{
			"oldStatus":      string(oldStatus),
			"newStatus":      string(updated.Status),
			"workflowResult": callback.WorkflowResult,
			"source":         "webhook",
		},
	})

	s.logger.Info("webhook status applied",
		"ticket_id", updated.ID,
		"tenant_id", updated.TenantID,
		"old_status", oldStatus,
		"new_status", updated.Status,
	)

	createdByEmail := s.lookupEmail(ctx, updated.TenantID, updated.CreatedBy)
	assignedToEmail := ""
	if updated.AssignedTo != nil {
		assignedToEmail = s.lookupEmail(ctx, updated.TenantID, *updated.AssignedTo)
	}

	event := domain.Event{
		Type:     domain.EventTicketUpdated,
		TenantID: updated.TenantID,
		Payload:  domain.NewTicketSnapshot(updated, createdByEmail, assignedToEmail),
	}
	if err := s.broadcaster.Publish(event); err != nil {
		s.logger.Warn("broadcast failed",
			"event_type", event.Type,
			"tenant_id", updated.TenantID,
			"error", err,
		)
	}

	return updated, nil
}

// PublishTenantStatus validates the callback, infers tenant existence from
// the user store (there is no separate tenant entity), and broadcasts a
// transient status event with a server-assigned timestamp. Nothing is
// persisted.
func (s *WebhookIngressService) PublishTenantStatus(ctx context.Context, callback ports.TenantStatusCallback) (*domain.TenantStatusEvent, error) {
	if !domain.ValidTenantStatus(callback.Status) {
		return nil, apperrors.ErrInvalidTenantStatus
	}

	tenantUser, err := s.userRepo.FirstByTenant(ctx, callback.TenantID)
	if err != nil {
		return nil, err
	}

	statusEvent := &domain.TenantStatusEvent{
		TenantID:   callback.TenantID,
		TenantName: tenantUser.TenantName,
		Status:     callback.Status,
		Message:    callback.Message,
		Details:    callback.Details,
		Timestamp:  time.Now().UTC(),
	}

	event := domain.Event{
		Type:     domain.EventTenantStatusUpdated,
		TenantID: callback.TenantID,
		Payload:  statusEvent,
	}
	if err := s.broadcaster.Publish(event); err != nil {
		s.logger.Warn("broadcast failed",
			"event_type", event.Type,
			"tenant_id", callback.TenantID,
			"error", err,
		)
	}

	s.logger.Info("tenant status published",
		"tenant_id", callback.TenantID,
		"status", callback.Status,
	)

	return statusEvent, nil
}

func (s *WebhookIngressService) lookupEmail(ctx context.Context, tenantID string, userID uuid.UUID) string {
	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		return ""
	}
	return user.Email
}
