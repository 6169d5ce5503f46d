package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubreg/internal/registration/models"
	dErrors "clubreg/pkg/domain-errors"
	"clubreg/pkg/platform/httputil"
	"clubreg/pkg/requestcontext"
)

// Service defines the registration operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, cmd models.RegisterCommand) (models.Outcome, error)
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*models.Participation, error)
}

// Handler maps registration outcomes to HTTP responses.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/events/{eventId}/participants", h.HandleRegister)
	r.Get("/events/{eventId}/participants", h.HandleList)
}

// HandleRegister handles POST /events/{eventId}/participants.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := parseEventID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterParticipantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.Register(ctx, req.Command(eventID))
	if err != nil {
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"event_id", eventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration decided",
		"request_id", requestID,
		"event_id", eventID,
		"person_id", req.PersonID,
		"group_id", req.GroupID,
		"outcome", models.OutcomeName(outcome),
	)

	models.MatchOutcome(outcome,
		func(o models.Registered) struct{} {
			httputil.WriteJSON(w, http.StatusCreated, RegisteredResponse{
				ParticipationID: o.ParticipationID.String(),
				EventID:         o.EventID.String(),
			})
			return struct{}{}
		},
		func(o models.Ineligible) struct{} {
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, IneligibleResponse{
				Error:             string(dErrors.CodeIneligible),
				BlockingDocuments: o.BlockingDocuments,
			})
			return struct{}{}
		},
		func(o models.AlreadyRegistered) struct{} {
			httputil.WriteJSON(w, http.StatusConflict, AlreadyRegisteredResponse{
				Error:                   string(dErrors.CodeConflict),
				ExistingParticipationID: o.ExistingParticipationID.String(),
			})
			return struct{}{}
		},
		func(o models.ComplianceUnavailable) struct{} {
			w.Header().Set("Retry-After", retryAfterSeconds(o))
			httputil.WriteJSON(w, http.StatusServiceUnavailable, UnavailableResponse{
				Error:            string(dErrors.CodeUnavailable),
				ErrorDescription: "eligibility cannot be verified right now",
			})
			return struct{}{}
		},
	)
}

// HandleList handles GET /events/{eventId}/participants.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := parseEventID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListParticipants(ctx, eventID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list participants failed",
			"request_id", requestcontext.RequestID(ctx),
			"event_id", eventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := ParticipantsResponse{Participants: make([]ParticipationResponse, 0, len(list))}
	for _, p := range list {
		resp.Participants = append(resp.Participants, fromParticipation(p))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseEventID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "eventId"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "eventId must be a UUID")
	}
	return id, nil
}

func retryAfterSeconds(o models.ComplianceUnavailable) string {
	secs := int(math.Ceil(o.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
