package roles

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shepherd-hq/shepherd/internal/platform/httpx"
)

// Lister is the part of Service used by Handler.
type Lister interface {
	ListRoles(ctx context.Context) ([]Record, error)
	CheckDrift(ctx context.Context) (Drift, error)
}

// Handler exposes the seeded roles as JSON.
type Handler struct {
	logger  *slog.Logger
	service Lister
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Lister) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers role routes. Guards are applied by the caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
}

type listResponse struct {
	Roles []Record `json:"roles"`
	Drift Drift    `json:"drift"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	drift, err := h.service.CheckDrift(r.Context())
	if err != nil {
		h.logger.Error("check role drift", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Roles: records, Drift: drift})
}
