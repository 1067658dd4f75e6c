package employee

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewledger/crewledger/pkg/serrors"
)

var (
	ErrNotFound      = serrors.NewError("EMPLOYEE_NOT_FOUND", "employee not found", "")
	ErrAliasNotFound = serrors.NewError("ALIAS_NOT_FOUND", "alias not found", "")
	// ErrDuplicate is surfaced when the uniqueness constraint on the
	// normalized full name rejects a create. Callers fall back into the
	// match path instead of creating a second record.
	ErrDuplicate = serrors.NewError("DUPLICATE_EMPLOYEE", "employee with the same normalized name already exists", "")
	// ErrAliasConflict means the alias already resolves to a different
	// active person. A matching input, not a storage violation.
	ErrAliasConflict = serrors.NewError("ALIAS_CONFLICT", "alias already mapped to another active employee", "")
	ErrInvalidData   = serrors.NewError("INVALID_EMPLOYEE_DATA", "employee data is empty or malformed", "")
)

// AliasRecord is the secondary index entry mapping one normalized alias back
// to a person. An alias resolves to exactly one active person at a time.
type AliasRecord struct {
	PersonID        uuid.UUID
	NormalizedAlias string
	CreatedAt       time.Time
}

type FindParams struct {
	Status                 Status
	ProjectID              string
	NeedsProfileCompletion *bool
	Search                 string
	Limit                  int
	Offset                 int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Employee, error)
	GetByNumber(ctx context.Context, number string) (Employee, error)
	// GetByNormalizedName is the exact-match lookup on the canonical full
	// name of an active employee.
	GetByNormalizedName(ctx context.Context, normalizedName string) (Employee, error)
	// SearchByName performs a substring/normalized search for admin
	// tooling; it makes no matching decisions.
	SearchByName(ctx context.Context, query string) ([]Employee, error)
	List(ctx context.Context, params *FindParams) ([]Employee, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// Create persists a new employee and its alias rows. It must be a
	// conditional write: a second active employee with the same
	// normalized full name fails with ErrDuplicate.
	Create(ctx context.Context, data Employee) (Employee, error)
	Update(ctx context.Context, data Employee) error
	Terminate(ctx context.Context, id uuid.UUID, on time.Time, reason TerminationReason) error
	// AddAlias is idempotent for an alias already held by id and fails
	// with ErrAliasConflict when the alias maps to a different active
	// person.
	AddAlias(ctx context.Context, id uuid.UUID, normalizedAlias string) error
	// FindAlias is the exact alias lookup used by the match path.
	FindAlias(ctx context.Context, normalizedAlias string) (AliasRecord, error)
	AliasesFor(ctx context.Context, id uuid.UUID) ([]AliasRecord, error)
	// ReassignAliases moves every alias row from one person to another,
	// keeping original creation timestamps. Used only by merges.
	ReassignAliases(ctx context.Context, fromID, toID uuid.UUID) error
	// RecordMerge appends an immutable merge audit row.
	RecordMerge(ctx context.Context, record MergeRecord) error
}

// MergeRecord is the audit trail row for an applied merge.
type MergeRecord struct {
	PrimaryID      uuid.UUID
	DuplicateID    uuid.UUID
	ResolvedFields map[string]string
	Actor          string
	CreatedAt      time.Time
}
