package models

import (
	"database/sql"
	"time"
)

type Employee struct {
	PersonID           string
	EmployeeNumber     string
	FirstName          string
	LastName           string
	MiddleName         sql.NullString
	PreferredName      sql.NullString
	NormalizedFullName string
	Email              sql.NullString
	Phone              sql.NullString
	Status             string
	TerminationReason  sql.NullString
	TerminatedOn       sql.NullTime
	MergedInto         sql.NullString
	NeedsProfile       bool
	FirstMentionedDate sql.NullTime
	FirstMentionedRep  sql.NullString
	LastSeenDate       sql.NullTime
	LastSeenProjectID  sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type EmployeeAlias struct {
	PersonID        string
	NormalizedAlias string
	CreatedAt       time.Time
}

type EmployeeMerge struct {
	ID             int64
	PrimaryID      string
	DuplicateID    string
	ResolvedFields []byte
	Actor          sql.NullString
	CreatedAt      time.Time
}
