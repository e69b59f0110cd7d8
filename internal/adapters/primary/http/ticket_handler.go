package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/flowbit/support-platform/internal/adapters/primary/http/middleware"
	"github.com/flowbit/support-platform/internal/adapters/primary/validation"
	"github.com/flowbit/support-platform/internal/core/domain"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService ports.TicketService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// Router sets up a new chi Router for all ticket-related routes.
func (h *TicketHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)

	// Routes for a specific ticket
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Put("/", h.HandleUpdateTicket)
	})
}

// --- Request/Response DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)

	v.Required("description", r.Description).
		MaxLength("description", r.Description, domain.MaxDescriptionLength)

	if r.Priority != "" {
		v.OneOf("priority", r.Priority, []string{"Low", "Medium", "High", "Critical"})
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateTicketRequest defines the expected JSON body for partial ticket
// updates. AssignedTo is decoded as a raw value so that an absent key, an
// explicit null and a UUID string are all distinguishable.
type UpdateTicketRequest struct {
	Status     *string         `json:"status"`
	Priority   *string         `json:"priority"`
	AssignedTo json.RawMessage `json:"assignedTo"`
}

// Validate validates the update ticket request
func (r *UpdateTicketRequest) Validate() error {
	v := validation.NewValidator()

	if r.Status != nil {
		v.OneOf("status", *r.Status, []string{"Open", "In Progress", "Resolved", "Closed"})
	}

	if r.Priority != nil {
		v.OneOf("priority", *r.Priority, []string{"Low", "Medium", "High", "Critical"})
	}

	if len(r.AssignedTo) > 0 && !isJSONNull(r.AssignedTo) {
		var assignee string
		if err := json.Unmarshal(r.AssignedTo, &assignee); err != nil {
			v.Custom("assignedTo", false, "Must be a UUID string or null")
		} else {
			v.UUID("assignedTo", assignee)
		}
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// toUpdate converts the request into a domain change set plus the raw change
// map recorded in the audit trail.
func (r *UpdateTicketRequest) toUpdate() (domain.TicketUpdate, map[string]any, error) {
	var update domain.TicketUpdate
	changes := make(map[string]any)

	if r.Status != nil {
		status := domain.TicketStatus(*r.Status)
		update.Status = &status
		changes["status"] = *r.Status
	}

	if r.Priority != nil {
		priority := domain.TicketPriority(*r.Priority)
		update.Priority = &priority
		changes["priority"] = *r.Priority
	}

	if len(r.AssignedTo) > 0 {
		update.AssignedTo.Set = true
		if isJSONNull(r.AssignedTo) {
			changes["assignedTo"] = nil
		} else {
			var assignee string
			if err := json.Unmarshal(r.AssignedTo, &assignee); err != nil {
				return update, nil, err
			}
			assigneeID, err := uuid.Parse(assignee)
			if err != nil {
				return update, nil, err
			}
			update.AssignedTo.Value = &assigneeID
			changes["assignedTo"] = assignee
		}
	}

	return update, changes, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	CreatedBy   string  `json:"createdBy"`
	AssignedTo  *string `json:"assignedTo"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var assignedTo *string
	if ticket.AssignedTo != nil {
		value := ticket.AssignedTo.String()
		assignedTo = &value
	}

	return TicketDTO{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		CreatedBy:   ticket.CreatedBy.String(),
		AssignedTo:  assignedTo,
		CreatedAt:   ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   ticket.UpdatedAt.Format(time.RFC3339),
	}
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, toTicketDTO(ticket))
	}
	return response
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.getIdentity(w, r)
	if !ok {
		return
	}

	tickets, err := h.ticketService.ListTickets(r.Context(), *identity)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toTicketDTOs(tickets))
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.getIdentity(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateTicketParams{
		Actor:       *identity,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		Meta:        requestMeta(r),
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"tenant_id", identity.TenantID,
		"user_id", identity.UserID,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.getIdentity(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), *identity, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleUpdateTicket handles PUT /tickets/{ticketID}
func (h *TicketHandler) HandleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.getIdentity(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	update, changes, err := req.toUpdate()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateTicketParams{
		Actor:    *identity,
		TicketID: ticketID,
		Update:   update,
		Changes:  changes,
		Meta:     requestMeta(r),
	}

	ticket, err := h.ticketService.UpdateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket updated",
		"ticket_id", ticketID,
		"tenant_id", identity.TenantID,
		"user_id", identity.UserID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// --- Helper methods ---

// getIdentity extracts the resolved caller identity from the request context
func (h *TicketHandler) getIdentity(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHENTICATED",
		})
		return nil, false
	}
	return identity, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (int64, error) {
	ticketIDStr := chi.URLParam(r, "ticketID")
	ticketID, err := strconv.ParseInt(ticketIDStr, 10, 64)
	if err != nil || ticketID <= 0 {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return 0, v.Errors()
	}
	return ticketID, nil
}

// requestMeta captures transport metadata for the audit trail.
func requestMeta(r *http.Request) ports.RequestMeta {
	return ports.RequestMeta{
		IPAddress: mw.GetClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
