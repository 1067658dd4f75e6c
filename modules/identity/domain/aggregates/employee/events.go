package employee

import (
	"time"

	"github.com/google/uuid"
)

// CreatedEvent fires for both explicit creation and auto-creation from a
// transcript mention; AutoCreated distinguishes the two.
type CreatedEvent struct {
	Result      Employee
	AutoCreated bool
	Timestamp   time.Time
}

// MatchedEvent fires when a mention resolves to an existing employee.
type MatchedEvent struct {
	Result    Employee
	RawName   string
	Method    string
	Timestamp time.Time
}

type AliasAddedEvent struct {
	PersonID        uuid.UUID
	NormalizedAlias string
	Timestamp       time.Time
}

type MergedEvent struct {
	PrimaryID   uuid.UUID
	DuplicateID uuid.UUID
	Timestamp   time.Time
}

type TerminatedEvent struct {
	Result    Employee
	Reason    TerminationReason
	Timestamp time.Time
}

type UpdatedEvent struct {
	Result    Employee
	Timestamp time.Time
}

func NewCreatedEvent(result Employee, autoCreated bool) *CreatedEvent {
	return &CreatedEvent{Result: result, AutoCreated: autoCreated, Timestamp: time.Now()}
}

func NewMatchedEvent(result Employee, rawName, method string) *MatchedEvent {
	return &MatchedEvent{Result: result, RawName: rawName, Method: method, Timestamp: time.Now()}
}

func NewAliasAddedEvent(personID uuid.UUID, normalizedAlias string) *AliasAddedEvent {
	return &AliasAddedEvent{PersonID: personID, NormalizedAlias: normalizedAlias, Timestamp: time.Now()}
}

func NewMergedEvent(primaryID, duplicateID uuid.UUID) *MergedEvent {
	return &MergedEvent{PrimaryID: primaryID, DuplicateID: duplicateID, Timestamp: time.Now()}
}

func NewTerminatedEvent(result Employee, reason TerminationReason) *TerminatedEvent {
	return &TerminatedEvent{Result: result, Reason: reason, Timestamp: time.Now()}
}

func NewUpdatedEvent(result Employee) *UpdatedEvent {
	return &UpdatedEvent{Result: result, Timestamp: time.Now()}
}
