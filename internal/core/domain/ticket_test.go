package domain_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
)

func TestNewTicket(t *testing.T) {
	creator := uuid.New()

	t.Run("valid ticket starts open", func(t *testing.T) {
		ticket, err := domain.NewTicket(domain.TicketParams{
			TenantID:    "tenant-a",
			Title:       "Printer down",
			Description: "3rd floor",
			Priority:    domain.PriorityHigh,
			CreatedBy:   creator,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, ticket.Status)
		assert.Equal(t, domain.PriorityHigh, ticket.Priority)
		assert.Equal(t, "tenant-a", ticket.TenantID)
		assert.Equal(t, creator, ticket.CreatedBy)
		assert.Nil(t, ticket.AssignedTo)
		assert.Nil(t, ticket.WorkflowRunID)
	})

	t.Run("priority defaults to medium", func(t *testing.T) {
		ticket, err := domain.NewTicket(domain.TicketParams{
			TenantID:    "tenant-a",
			Title:       "No priority",
			Description: "body",
			CreatedBy:   creator,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		_, err := domain.NewTicket(domain.TicketParams{
			TenantID:    "tenant-a",
			Description: "body",
			CreatedBy:   creator,
		})
		assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
	})

	t.Run("empty description rejected", func(t *testing.T) {
		_, err := domain.NewTicket(domain.TicketParams{
			TenantID:  "tenant-a",
			Title:     "title",
			CreatedBy: creator,
		})
		assert.ErrorIs(t, err, apperrors.ErrDescriptionRequired)
	})

	t.Run("overlong title rejected", func(t *testing.T) {
		_, err := domain.NewTicket(domain.TicketParams{
			TenantID:    "tenant-a",
			Title:       strings.Repeat("x", domain.MaxTitleLength+1),
			Description: "body",
			CreatedBy:   creator,
		})
		assert.ErrorIs(t, err, apperrors.ErrTitleTooLong)
	})

	t.Run("missing tenant rejected", func(t *testing.T) {
		_, err := domain.NewTicket(domain.TicketParams{
			Title:       "title",
			Description: "body",
			CreatedBy:   creator,
		})
		assert.ErrorIs(t, err, apperrors.ErrTenantRequired)
	})

	t.Run("unknown priority rejected", func(t *testing.T) {
		_, err := domain.NewTicket(domain.TicketParams{
			TenantID:    "tenant-a",
			Title:       "title",
			Description: "body",
			Priority:    domain.TicketPriority("Urgent"),
			CreatedBy:   creator,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPriority)
	})
}

func TestTicketApply(t *testing.T) {
	newTicket := func() *domain.Ticket {
		ticket, err := domain.NewTicket(domain.TicketParams{
			TenantID:    "tenant-a",
			Title:       "title",
			Description: "body",
			Priority:    domain.PriorityLow,
			CreatedBy:   uuid.New(),
		})
		require.NoError(t, err)
		return ticket
	}

	t.Run("partial update leaves other fields untouched", func(t *testing.T) {
		ticket := newTicket()
		assignee := uuid.New()
		ticket.AssignedTo = &assignee

		status := domain.StatusResolved
		err := ticket.Apply(domain.TicketUpdate{Status: &status})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, ticket.Status)
		assert.Equal(t, domain.PriorityLow, ticket.Priority)
		assert.Equal(t, &assignee, ticket.AssignedTo)
	})

	t.Run("explicit null clears the assignment", func(t *testing.T) {
		ticket := newTicket()
		assignee := uuid.New()
		ticket.AssignedTo = &assignee

		err := ticket.Apply(domain.TicketUpdate{
			AssignedTo: domain.OptionalAssignee{Set: true, Value: nil},
		})

		require.NoError(t, err)
		assert.Nil(t, ticket.AssignedTo)
	})

	t.Run("absent assignee field keeps assignment", func(t *testing.T) {
		ticket := newTicket()
		assignee := uuid.New()
		ticket.AssignedTo = &assignee

		priority := domain.PriorityCritical
		err := ticket.Apply(domain.TicketUpdate{Priority: &priority})

		require.NoError(t, err)
		assert.Equal(t, &assignee, ticket.AssignedTo)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		ticket := newTicket()
		status := domain.TicketStatus("Bogus")
		err := ticket.Apply(domain.TicketUpdate{Status: &status})
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	})
}

func TestTicketUpdateIsEmpty(t *testing.T) {
	assert.True(t, domain.TicketUpdate{}.IsEmpty())

	status := domain.StatusClosed
	assert.False(t, domain.TicketUpdate{Status: &status}.IsEmpty())

	// Clearing the assignee is a change even though the value is nil.
	assert.False(t, domain.TicketUpdate{
		AssignedTo: domain.OptionalAssignee{Set: true},
	}.IsEmpty())
}

func TestTicketSetStatus(t *testing.T) {
	ticket, err := domain.NewTicket(domain.TicketParams{
		TenantID:    "tenant-a",
		Title:       "title",
		Description: "body",
		CreatedBy:   uuid.New(),
	})
	require.NoError(t, err)

	// Last-write-wins: a transition back to an earlier status is accepted.
	require.NoError(t, ticket.SetStatus(domain.StatusResolved))
	require.NoError(t, ticket.SetStatus(domain.StatusInProgress))
	assert.Equal(t, domain.StatusInProgress, ticket.Status)

	assert.ErrorIs(t, ticket.SetStatus(domain.TicketStatus("Nope")), apperrors.ErrInvalidStatus)
}
