package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/flowbit/support-platform/internal/core/errors"
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "Open"
	StatusInProgress TicketStatus = "In Progress"
	StatusResolved   TicketStatus = "Resolved"
	StatusClosed     TicketStatus = "Closed"
)

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityLow      TicketPriority = "Low"
	PriorityMedium   TicketPriority = "Medium"
	PriorityHigh     TicketPriority = "High"
	PriorityCritical TicketPriority = "Critical"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known ticket priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Ticket is the core domain entity. TenantID is set at creation and never
// changes; every persistence path filters on it.
type Ticket struct {
	ID            int64
	TenantID      string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CreatedBy     uuid.UUID
	AssignedTo    *uuid.UUID
	WorkflowRunID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketParams holds the caller-supplied fields for a new ticket.
type TicketParams struct {
	TenantID    string
	Title       string
	Description string
	Priority    TicketPriority
	CreatedBy   uuid.UUID
}

// NewTicket creates a valid new ticket. Status always starts at Open and the
// priority defaults to Medium when unset.
func NewTicket(params TicketParams) (*Ticket, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if params.Description == "" {
		return nil, apperrors.ErrDescriptionRequired
	}
	if len(params.Description) > MaxDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}
	if params.TenantID == "" {
		return nil, apperrors.ErrTenantRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, apperrors.ErrInvalidPriority
	}

	now := time.Now().UTC()
	return &Ticket{
		TenantID:    params.TenantID,
		Title:       params.Title,
		Description: params.Description,
		Status:      StatusOpen,
		Priority:    priority,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// OptionalAssignee is a change-set field that distinguishes "not provided"
// from "provided as empty". Set=true with a nil Value clears the assignment.
type OptionalAssignee struct {
	Set   bool
	Value *uuid.UUID
}

// TicketUpdate is the change set for a partial ticket update. Nil pointer
// fields are untouched.
type TicketUpdate struct {
	Status     *TicketStatus
	Priority   *TicketPriority
	AssignedTo OptionalAssignee
}

// IsEmpty reports whether the update would change nothing.
func (u TicketUpdate) IsEmpty() bool {
	return u.Status == nil && u.Priority == nil && !u.AssignedTo.Set
}

// Apply validates and applies the change set to the ticket. Fields absent
// from the update keep their current values.
func (t *Ticket) Apply(update TicketUpdate) error {
	if update.Status != nil {
		if !ValidStatus(*update.Status) {
			return apperrors.ErrInvalidStatus
		}
		t.Status = *update.Status
	}
	if update.Priority != nil {
		if !ValidPriority(*update.Priority) {
			return apperrors.ErrInvalidPriority
		}
		t.Priority = *update.Priority
	}
	if update.AssignedTo.Set {
		t.AssignedTo = update.AssignedTo.Value
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetStatus applies a status value unconditionally (last-write-wins). The
// webhook path uses this: the source system carries no ordering token, so an
// out-of-order delivery can overwrite a fresher status.
func (t *Ticket) SetStatus(status TicketStatus) error {
	if !ValidStatus(status) {
		return apperrors.ErrInvalidStatus
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsOwnedBy reports whether the given user created the ticket.
func (t *Ticket) IsOwnedBy(userID uuid.UUID) bool {
	return t.CreatedBy == userID
}
