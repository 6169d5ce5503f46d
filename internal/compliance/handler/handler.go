package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubreg/internal/compliance/models"
	"clubreg/internal/compliance/service"
	"clubreg/pkg/platform/httputil"
	"clubreg/pkg/requestcontext"
)

// Service defines the compliance operations exposed over HTTP.
type Service interface {
	CheckEligibility(ctx context.Context, personID, asdID uuid.UUID, agonistic bool) (models.Verdict, error)
	RecordDocument(ctx context.Context, cmd service.RecordDocumentCommand) (*models.Document, error)
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Handler wires compliance endpoints to the compliance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the service-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/eligibility", h.HandleEligibility)
	r.Post("/documents", h.HandleRecordDocument)
}

// RegisterAdmin mounts operator endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/sweeps/documents", h.HandleSweep)
}

// HandleEligibility handles GET /eligibility.
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	personID, asdID, agonistic, err := parseEligibilityQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verdict, err := h.service.CheckEligibility(ctx, personID, asdID, agonistic)
	if err != nil {
		h.logger.ErrorContext(ctx, "eligibility check failed",
			"request_id", requestID,
			"person_id", personID,
			"asd_id", asdID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "eligibility checked",
		"request_id", requestID,
		"caller", requestcontext.Caller(ctx),
		"person_id", personID,
		"asd_id", asdID,
		"agonistic", agonistic,
		"verdict", verdict.Kind,
	)
	httputil.WriteJSON(w, http.StatusOK, fromVerdict(verdict))
}

// HandleRecordDocument handles POST /documents.
func (h *Handler) HandleRecordDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.RecordDocument(ctx, req.Command())
	if err != nil {
		h.logger.ErrorContext(ctx, "record document failed",
			"request_id", requestID,
			"person_id", req.PersonID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document recorded",
		"request_id", requestID,
		"document_id", doc.ID,
		"person_id", doc.PersonID,
		"document_type", doc.Type,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromDocument(doc))
}

// HandleSweep handles POST /admin/sweeps/documents.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.Sweep(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "document sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
