package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubreg/internal/compliance/service"
	"clubreg/internal/compliance/store"
	"clubreg/pkg/events"
	"clubreg/pkg/testutil"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, events.Envelope) error { return nil }

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(store.NewInMemoryStore(), nopPublisher{}, service.WithLogger(logger))
	require.NoError(t, err)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func at(req *http.Request) *http.Request {
	return testutil.WithRequestTime(req, fixedNow)
}

func TestHandleEligibility(t *testing.T) {
	router := newRouter(t)
	personID, asdID := uuid.NewString(), uuid.NewString()

	t.Run("missing documents is a 200 with blockers", func(t *testing.T) {
		req := at(testutil.NewRequest(t, http.MethodGet,
			"/eligibility?personId="+personID+"&asdId="+asdID+"&agonistic=true"))
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[EligibilityResponse](t, rr)
		assert.False(t, resp.Eligible)
		assert.Equal(t, []string{"MEDICAL_CERT [MISSING]", "FEDERATION_CARD [MISSING]"}, resp.BlockingDocuments)
		assert.Equal(t, []string{}, resp.Warnings)
	})

	t.Run("recorded documents make the person eligible", func(t *testing.T) {
		for _, docType := range []string{"MEDICAL_CERT_BASIC", "ASD_MEMBERSHIP_CARD"} {
			body := RecordDocumentRequest{PersonID: personID, AsdID: asdID, DocumentType: docType, ExpiresOn: "2027-01-31"}
			rr := testutil.DoRequest(router, at(testutil.NewJSONRequest(t, http.MethodPost, "/documents", body)))
			testutil.AssertStatus(t, rr, http.StatusCreated)
		}

		req := at(testutil.NewRequest(t, http.MethodGet,
			"/eligibility?personId="+personID+"&asdId="+asdID+"&agonistic=false"))
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[EligibilityResponse](t, rr)
		assert.True(t, resp.Eligible)
		assert.Empty(t, resp.BlockingDocuments)
	})

	t.Run("invalid person id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/eligibility?personId=abc&asdId="+asdID)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("invalid agonistic flag", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet,
			"/eligibility?personId="+personID+"&asdId="+asdID+"&agonistic=maybe")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleRecordDocument(t *testing.T) {
	router := newRouter(t)

	t.Run("unsupported type", func(t *testing.T) {
		body := RecordDocumentRequest{PersonID: uuid.NewString(), AsdID: uuid.NewString(), DocumentType: "PASSPORT", ExpiresOn: "2027-01-31"}
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/documents", body))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/documents", "{"))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("bad expiry date", func(t *testing.T) {
		body := RecordDocumentRequest{PersonID: uuid.NewString(), AsdID: uuid.NewString(), DocumentType: "MEDICAL_CERT", ExpiresOn: "31/01/2027"}
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/documents", body))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("lower-case type is normalized", func(t *testing.T) {
		body := RecordDocumentRequest{PersonID: uuid.NewString(), AsdID: uuid.NewString(), DocumentType: "medical_cert", ExpiresOn: "2027-01-31"}
		rr := testutil.DoRequest(router, at(testutil.NewJSONRequest(t, http.MethodPost, "/documents", body)))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[DocumentResponse](t, rr)
		assert.Equal(t, "MEDICAL_CERT", resp.DocumentType)
		assert.Equal(t, "2027-01-31", resp.ExpiresOn)
	})
}

func TestHandleSweep(t *testing.T) {
	router := newRouter(t)
	body := RecordDocumentRequest{PersonID: uuid.NewString(), AsdID: uuid.NewString(), DocumentType: "MEDICAL_CERT", ExpiresOn: "2026-01-31"}
	rr := testutil.DoRequest(router, at(testutil.NewJSONRequest(t, http.MethodPost, "/documents", body)))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(router, at(testutil.NewRequest(t, http.MethodPost, "/admin/sweeps/documents")))

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[service.SweepResult](t, rr)
	assert.Equal(t, 1, resp.ExpiredAnnounced)
}
