package events

import "github.com/google/uuid"

// ParticipantRegisteredEvent is published once per persisted participation and
// carries what downstream consumers need without calling back.
// Aggregate key: ParticipationID.
type ParticipantRegisteredEvent struct {
	ParticipationID uuid.UUID  `json:"participationId"`
	EventID         uuid.UUID  `json:"eventId"`
	PersonID        *uuid.UUID `json:"personId,omitempty"`
	GroupID         *uuid.UUID `json:"groupId,omitempty"`
	AsdID           uuid.UUID  `json:"asdId"`
	SeasonID        uuid.UUID  `json:"seasonId"`
	Categoria       string     `json:"categoria"`
}

// MembershipActivatedEvent is published by the membership service when a
// person's ASD membership for a season becomes active.
// Aggregate key: MembershipID.
type MembershipActivatedEvent struct {
	MembershipID uuid.UUID `json:"membershipId"`
	PersonID     uuid.UUID `json:"personId"`
	AsdID        uuid.UUID `json:"asdId"`
	SeasonID     uuid.UUID `json:"seasonId"`
}

// EnrollmentCreatedEvent is published by the courses service when a person
// enrolls in a course.
// Aggregate key: EnrollmentID.
type EnrollmentCreatedEvent struct {
	EnrollmentID uuid.UUID `json:"enrollmentId"`
	CourseID     uuid.UUID `json:"courseId"`
	PersonID     uuid.UUID `json:"personId"`
	AsdID        uuid.UUID `json:"asdId"`
	SeasonID     uuid.UUID `json:"seasonId"`
}
