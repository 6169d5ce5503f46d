// Package events defines the wire contracts exchanged between services.
//
// Every record on every topic is an Envelope serialized as JSON. The Kafka
// record key is the envelope's AggregateID, which is also the partition and
// ordering key: all events about one aggregate land on one partition in order.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names an event kind.
type Type string

const (
	TypeDocumentExpired       Type = "document.expired"
	TypeDocumentRenewed       Type = "document.renewed"
	TypeParticipantRegistered Type = "participant.registered"
	TypeMembershipActivated   Type = "membership.activated"
	TypeEnrollmentCreated     Type = "enrollment.created"
)

// Topics.
const (
	TopicComplianceDocuments       = "compliance.documents"
	TopicCompetitionParticipations = "competition.participations"
	TopicClubMemberships           = "club.memberships"
	TopicCourseEnrollments         = "course.enrollments"
)

// DeadLetterSuffix is appended to a topic name to form its dead-letter topic.
const DeadLetterSuffix = ".dlq"

// DeadLetterTopic returns the dead-letter companion of topic.
func DeadLetterTopic(topic string) string {
	return topic + DeadLetterSuffix
}

// ErrMalformedEnvelope is returned when a record is not a decodable envelope.
var ErrMalformedEnvelope = errors.New("malformed event envelope")

// Envelope wraps a typed payload with identity and ordering metadata.
// ID identifies this publication; it is NOT an idempotency key. Consumers that
// need exactly-once effects key on the upstream entity id inside the payload.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"type"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope serializes payload into a fresh envelope.
func NewEnvelope(eventType Type, aggregateID string, payload any, occurredAt time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  occurredAt.UTC(),
		Payload:     raw,
	}, nil
}

// Marshal encodes the envelope.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePayload unmarshals the payload into dst.
func (e Envelope) DecodePayload(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrMalformedEnvelope, e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, e.Type, err)
	}
	return nil
}

// Decode parses a record value into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return env, nil
}
