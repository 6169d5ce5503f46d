package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubreg/internal/billing/models"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/platform/httputil"
	"clubreg/pkg/requestcontext"
)

// Store is the read side of the obligation store.
type Store interface {
	ListByPerson(ctx context.Context, personID uuid.UUID) ([]*models.Obligation, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/persons/{personId}/obligations", h.HandleListByPerson)
}

type ObligationsResponse struct {
	Obligations []*models.Obligation `json:"obligations"`
}

// HandleListByPerson handles GET /persons/{personId}/obligations.
func (h *Handler) HandleListByPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, err := uuid.Parse(chi.URLParam(r, "personId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "personId must be a UUID"))
		return
	}
	list, err := h.store.ListByPerson(ctx, personID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list obligations failed",
			"request_id", requestcontext.RequestID(ctx),
			"person_id", personID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list obligations"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ObligationsResponse{Obligations: list})
}
