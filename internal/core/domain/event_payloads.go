package domain

import (
	"strconv"
	"time"
)

// TicketSnapshot matches the API response shape for tickets. CreatedBy and
// AssignedTo are resolved to email display form for broadcast payloads.
type TicketSnapshot struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenantId"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Priority      string  `json:"priority"`
	CreatedBy     string  `json:"createdBy"`
	AssignedTo    *string `json:"assignedTo"`
	WorkflowRunID *string `json:"workflowRunId,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

// NewTicketSnapshot builds a snapshot from a domain ticket. createdByEmail
// and assignedToEmail carry the resolved display form; an empty
// assignedToEmail with a set AssignedTo falls back to the raw id.
func NewTicketSnapshot(ticket *Ticket, createdByEmail, assignedToEmail string) TicketSnapshot {
	createdBy := createdByEmail
	if createdBy == "" {
		createdBy = ticket.CreatedBy.String()
	}

	var assignedTo *string
	if ticket.AssignedTo != nil {
		value := assignedToEmail
		if value == "" {
			value = ticket.AssignedTo.String()
		}
		assignedTo = &value
	}

	return TicketSnapshot{
		ID:            strconv.FormatInt(ticket.ID, 10),
		TenantID:      ticket.TenantID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Status:        string(ticket.Status),
		Priority:      string(ticket.Priority),
		CreatedBy:     createdBy,
		AssignedTo:    assignedTo,
		WorkflowRunID: ticket.WorkflowRunID,
		CreatedAt:     ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     ticket.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
