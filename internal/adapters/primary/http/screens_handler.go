package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/flowbit/support-platform/internal/adapters/primary/http/middleware"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// Screen is one entry in a tenant's application registry.
type Screen struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ScreensResponse defines the JSON response for the screen registry lookup.
type ScreensResponse struct {
	TenantName string   `json:"tenantName"`
	Screens    []Screen `json:"screens"`
}

// defaultRegistry maps tenant names to the set of application screens their
// users may load. The registry is static; tenants not listed get an empty set.
var defaultRegistry = map[string][]Screen{
	"LogisticsCo": {
		{Name: "SupportTicketsApp", URL: "http://localhost:3002/remoteEntry.js"},
	},
	"RetailGmbH": {
		{Name: "SupportTicketsApp", URL: "http://localhost:3002/remoteEntry.js"},
	},
}

// ScreensHandler serves the per-tenant screen registry for the authenticated
// user. The registry is keyed by tenant name, so the handler resolves the
// caller's user record to obtain it.
type ScreensHandler struct {
	userRepo     ports.UserRepository
	registry     map[string][]Screen
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewScreensHandler creates a new screens handler. A nil registry falls back
// to the built-in default.
func NewScreensHandler(
	userRepo ports.UserRepository,
	registry map[string][]Screen,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ScreensHandler {
	if registry == nil {
		registry = defaultRegistry
	}
	return &ScreensHandler{
		userRepo:     userRepo,
		registry:     registry,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "screens"),
	}
}

// RegisterRoutes registers the /users/me routes.
func (h *ScreensHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me/screens", h.HandleScreens)
}

// HandleScreens handles GET /users/me/screens.
func (h *ScreensHandler) HandleScreens(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHENTICATED",
		})
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), identity.TenantID, identity.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	screens := h.registry[user.TenantName]
	if screens == nil {
		screens = []Screen{}
	}

	WriteJSON(w, http.StatusOK, ScreensResponse{
		TenantName: user.TenantName,
		Screens:    screens,
	})
}
