package employee

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewledger/crewledger/modules/identity/matching"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusTerminated Status = "terminated"
)

// TerminationReason distinguishes a person who actually left from a record
// absorbed into another via merge. The zero value means "not terminated".
type TerminationReason string

const (
	ReasonNone       TerminationReason = ""
	ReasonResigned   TerminationReason = "resigned"
	ReasonDismissed  TerminationReason = "dismissed"
	ReasonMergedAway TerminationReason = "merged"
)

// MentionContext is the situational context attached to a transcript mention.
type MentionContext struct {
	ProjectID  string
	ReportDate time.Time
	ReportID   string
}

// Employee is the canonical identity record. The struct is immutable; With*
// methods return updated copies.
type Employee struct {
	personID       uuid.UUID
	employeeNumber string

	firstName     string
	lastName      string
	middleName    string
	preferredName string

	email string
	phone string

	knownAliases []string

	status            Status
	terminationReason TerminationReason
	terminatedOn      time.Time
	mergedInto        uuid.UUID

	needsProfileCompletion bool

	firstMentionedDate     time.Time
	firstMentionedReportID string
	lastSeenDate           time.Time
	lastSeenProjectID      string

	createdAt time.Time
	updatedAt time.Time
}

// New builds an active employee from explicitly entered profile data.
func New(firstName, lastName string) Employee {
	e := Employee{
		personID:  uuid.New(),
		firstName: strings.TrimSpace(firstName),
		lastName:  strings.TrimSpace(lastName),
		status:    StatusActive,
	}
	e.knownAliases = []string{e.NormalizedName()}
	return e
}

// NewFromMention auto-creates an employee from a free-text transcript
// mention. The first token becomes the first name and the remainder the last
// name; the profile is flagged incomplete until an explicit edit fills it in.
func NewFromMention(rawName string, ctx MentionContext) Employee {
	canonical := matching.Normalize(rawName)
	tokens := strings.Fields(matching.DisplayName(canonical))

	var first, last string
	if len(tokens) > 0 {
		first = tokens[0]
	}
	if len(tokens) > 1 {
		last = strings.Join(tokens[1:], " ")
	}

	e := Employee{
		personID:               uuid.New(),
		firstName:              first,
		lastName:               last,
		status:                 StatusActive,
		needsProfileCompletion: true,
		firstMentionedDate:     ctx.ReportDate,
		firstMentionedReportID: ctx.ReportID,
		lastSeenDate:           ctx.ReportDate,
		lastSeenProjectID:      ctx.ProjectID,
	}
	e.knownAliases = uniqueSorted([]string{canonical})
	return e
}

// Hydrate restores an employee from persistence.
func Hydrate(
	personID uuid.UUID,
	employeeNumber string,
	firstName, lastName, middleName, preferredName string,
	email, phone string,
	knownAliases []string,
	status Status,
	terminationReason TerminationReason,
	terminatedOn time.Time,
	mergedInto uuid.UUID,
	needsProfileCompletion bool,
	firstMentionedDate time.Time,
	firstMentionedReportID string,
	lastSeenDate time.Time,
	lastSeenProjectID string,
	createdAt, updatedAt time.Time,
) Employee {
	return Employee{
		personID:               personID,
		employeeNumber:         employeeNumber,
		firstName:              strings.TrimSpace(firstName),
		lastName:               strings.TrimSpace(lastName),
		middleName:             strings.TrimSpace(middleName),
		preferredName:          strings.TrimSpace(preferredName),
		email:                  strings.TrimSpace(email),
		phone:                  strings.TrimSpace(phone),
		knownAliases:           uniqueSorted(knownAliases),
		status:                 status,
		terminationReason:      terminationReason,
		terminatedOn:           terminatedOn,
		mergedInto:             mergedInto,
		needsProfileCompletion: needsProfileCompletion,
		firstMentionedDate:     firstMentionedDate,
		firstMentionedReportID: firstMentionedReportID,
		lastSeenDate:           lastSeenDate,
		lastSeenProjectID:      lastSeenProjectID,
		createdAt:              createdAt,
		updatedAt:              updatedAt,
	}
}

func (e Employee) PersonID() uuid.UUID                  { return e.personID }
func (e Employee) EmployeeNumber() string               { return e.employeeNumber }
func (e Employee) FirstName() string                    { return e.firstName }
func (e Employee) LastName() string                     { return e.lastName }
func (e Employee) MiddleName() string                   { return e.middleName }
func (e Employee) PreferredName() string                { return e.preferredName }
func (e Employee) Email() string                        { return e.email }
func (e Employee) Phone() string                        { return e.phone }
func (e Employee) Status() Status                       { return e.status }
func (e Employee) TerminationReason() TerminationReason { return e.terminationReason }
func (e Employee) TerminatedOn() time.Time              { return e.terminatedOn }
func (e Employee) MergedInto() uuid.UUID                { return e.mergedInto }
func (e Employee) NeedsProfileCompletion() bool         { return e.needsProfileCompletion }
func (e Employee) FirstMentionedDate() time.Time        { return e.firstMentionedDate }
func (e Employee) FirstMentionedReportID() string       { return e.firstMentionedReportID }
func (e Employee) LastSeenDate() time.Time              { return e.lastSeenDate }
func (e Employee) LastSeenProjectID() string            { return e.lastSeenProjectID }
func (e Employee) CreatedAt() time.Time                 { return e.createdAt }
func (e Employee) UpdatedAt() time.Time                 { return e.updatedAt }
func (e Employee) IsZero() bool                         { return e.personID == uuid.Nil }
func (e Employee) IsActive() bool                       { return e.status == StatusActive }

// FullName is the presentable display name, preferring the preferred name
// for the first position when present.
func (e Employee) FullName() string {
	first := e.firstName
	if e.preferredName != "" {
		first = e.preferredName
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{first, e.middleName, e.lastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// NormalizedName is the canonical comparison key derived from the legal
// first/last name, not the preferred name.
func (e Employee) NormalizedName() string {
	return matching.Normalize(strings.TrimSpace(e.firstName + " " + e.lastName))
}

// KnownAliases returns a defensive copy of the alias set.
func (e Employee) KnownAliases() []string {
	out := make([]string, len(e.knownAliases))
	copy(out, e.knownAliases)
	return out
}

func (e Employee) HasAlias(normalizedAlias string) bool {
	i := sort.SearchStrings(e.knownAliases, normalizedAlias)
	return i < len(e.knownAliases) && e.knownAliases[i] == normalizedAlias
}

// WithAlias returns a copy with the alias unioned in. The alias set never
// shrinks outside of a merge.
func (e Employee) WithAlias(normalizedAlias string) Employee {
	if normalizedAlias == "" || e.HasAlias(normalizedAlias) {
		return e
	}
	e.knownAliases = uniqueSorted(append(e.KnownAliases(), normalizedAlias))
	return e
}

// WithAliases unions in a whole alias set, used when absorbing a merged
// duplicate.
func (e Employee) WithAliases(normalizedAliases []string) Employee {
	e.knownAliases = uniqueSorted(append(e.KnownAliases(), normalizedAliases...))
	return e
}

func (e Employee) WithEmployeeNumber(number string) Employee {
	e.employeeNumber = strings.TrimSpace(number)
	return e
}

func (e Employee) WithStatus(status Status) Employee {
	e.status = status
	return e
}

// WithProfile applies an explicit profile edit. Completing the required
// contact fields clears the needs-profile-completion flag.
func (e Employee) WithProfile(firstName, lastName, middleName, preferredName, email, phone string) Employee {
	e.firstName = strings.TrimSpace(firstName)
	e.lastName = strings.TrimSpace(lastName)
	e.middleName = strings.TrimSpace(middleName)
	e.preferredName = strings.TrimSpace(preferredName)
	e.email = strings.TrimSpace(email)
	e.phone = strings.TrimSpace(phone)
	if e.firstName != "" && e.lastName != "" && (e.email != "" || e.phone != "") {
		e.needsProfileCompletion = false
	}
	return e
}

// WithSighting records provenance for a successful match.
func (e Employee) WithSighting(ctx MentionContext) Employee {
	if e.firstMentionedDate.IsZero() {
		e.firstMentionedDate = ctx.ReportDate
		e.firstMentionedReportID = ctx.ReportID
	}
	if !ctx.ReportDate.IsZero() {
		e.lastSeenDate = ctx.ReportDate
	}
	if ctx.ProjectID != "" {
		e.lastSeenProjectID = ctx.ProjectID
	}
	return e
}

// WithTermination marks the employee terminated for a real-world reason.
func (e Employee) WithTermination(on time.Time, reason TerminationReason) Employee {
	e.status = StatusTerminated
	e.terminatedOn = on
	e.terminationReason = reason
	return e
}

// WithMergedInto marks the employee as absorbed by another record. History
// attributed to this id stays in place and resolves through the
// back-reference.
func (e Employee) WithMergedInto(primaryID uuid.UUID, on time.Time) Employee {
	e.status = StatusTerminated
	e.terminatedOn = on
	e.terminationReason = ReasonMergedAway
	e.mergedInto = primaryID
	return e
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
