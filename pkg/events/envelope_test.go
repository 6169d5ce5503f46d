package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeCarriesTypedPayload(t *testing.T) {
	personID := uuid.New()
	expiredOn := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	env, err := NewEnvelope(TypeDocumentExpired, personID.String(), DocumentExpiredEvent{
		PersonID:     personID,
		AsdID:        uuid.New(),
		DocumentType: "MEDICAL_CERT",
		ExpiredOn:    expiredOn,
	}, time.Now())
	require.NoError(t, err)

	raw, err := env.Marshal()
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeDocumentExpired, decoded.Type)
	assert.Equal(t, personID.String(), decoded.AggregateID)

	var payload DocumentExpiredEvent
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, personID, payload.PersonID)
	assert.True(t, expiredOn.Equal(payload.ExpiredOn))
}

func TestDecodeRejectsUnknownShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "hello"},
		{"json without type", `{"id":"` + uuid.NewString() + `"}`},
		{"array", `[1,2,3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDecodePayloadRequiresBody(t *testing.T) {
	env := Envelope{Type: TypeDocumentRenewed}
	var payload DocumentRenewedEvent
	assert.ErrorIs(t, env.DecodePayload(&payload), ErrMalformedEnvelope)
}

func TestDeadLetterTopic(t *testing.T) {
	assert.Equal(t, "compliance.documents.dlq", DeadLetterTopic(TopicComplianceDocuments))
}
