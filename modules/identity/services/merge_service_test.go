package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/infrastructure/persistence"
	"github.com/crewledger/crewledger/modules/identity/services"
	"github.com/crewledger/crewledger/pkg/metrics"
)

func newMergeFixture(t *testing.T) (*services.MergeService, *persistence.InMemoryRepository) {
	t.Helper()
	repo := persistence.NewInMemoryRepository()
	return services.NewMergeService(repo, quietBus(), metrics.Noop(), quietLog()), repo
}

// seedDuplicatePair builds the classic duplicate shape: a complete profile
// plus a stub auto-created from a transcript misspelling.
func seedDuplicatePair(t *testing.T, repo employee.Repository) (employee.Employee, employee.Employee) {
	t.Helper()
	ctx := context.Background()

	primary := employee.New("Michael", "Rodriguez").
		WithEmployeeNumber("EMP-00000001").
		WithProfile("Michael", "Rodriguez", "", "Mike", "mike.rodriguez@example.com", "")
	primary, err := repo.Create(ctx, primary)
	require.NoError(t, err)

	duplicate, err := repo.Create(ctx,
		employee.NewFromMention("Micheal Rodriguez", employee.MentionContext{ReportID: "rep-42"}).
			WithEmployeeNumber("EMP-00000002"))
	require.NoError(t, err)

	return primary, duplicate
}

func TestMergePreview(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, duplicate := seedDuplicatePair(t, repo)

	preview, err := svc.Preview(context.Background(), primary.PersonID(), duplicate.PersonID())
	require.NoError(t, err)

	require.Equal(t, primary.PersonID(), preview.PrimaryID)
	require.Equal(t, duplicate.PersonID(), preview.DuplicateID)
	require.Contains(t, preview.AliasUnion, "micheal rodriguez")

	fields := make([]string, 0, len(preview.Conflicts))
	for _, c := range preview.Conflicts {
		fields = append(fields, c.Field)
	}
	// Both sides carry a number and a first name, so both must be chosen
	// by a human. Empty duplicate fields are gap-fills, not conflicts.
	require.ElementsMatch(t, []string{"employee_number", "first_name"}, fields)
}

func TestMergePreviewIsReadOnly(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, duplicate := seedDuplicatePair(t, repo)
	ctx := context.Background()

	_, err := svc.Preview(ctx, primary.PersonID(), duplicate.PersonID())
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, duplicate.PersonID())
	require.NoError(t, err)
	require.True(t, got.IsActive())
	require.Empty(t, repo.Merges())
}

func TestMergeApply(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, duplicate := seedDuplicatePair(t, repo)
	ctx := context.Background()

	merged, err := svc.Apply(ctx, primary.PersonID(), duplicate.PersonID(), map[string]string{
		"employee_number": "EMP-00000001",
		"first_name":      "Michael",
	}, "admin@example.com")
	require.NoError(t, err)

	require.Equal(t, primary.PersonID(), merged.PersonID())
	require.Equal(t, "EMP-00000001", merged.EmployeeNumber())
	require.Equal(t, "Michael", merged.FirstName())
	// The duplicate's alias now resolves to the survivor.
	require.True(t, merged.HasAlias("micheal rodriguez"))

	gone, err := repo.GetByID(ctx, duplicate.PersonID())
	require.NoError(t, err)
	require.Equal(t, employee.StatusTerminated, gone.Status())
	require.Equal(t, employee.ReasonMergedAway, gone.TerminationReason())
	require.Equal(t, primary.PersonID(), gone.MergedInto())

	alias, err := repo.FindAlias(ctx, "micheal rodriguez")
	require.NoError(t, err)
	require.Equal(t, primary.PersonID(), alias.PersonID)

	records := repo.Merges()
	require.Len(t, records, 1)
	require.Equal(t, primary.PersonID(), records[0].PrimaryID)
	require.Equal(t, duplicate.PersonID(), records[0].DuplicateID)
	require.Equal(t, "admin@example.com", records[0].Actor)
}

func TestMergeApply_DuplicateValueCanWin(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, duplicate := seedDuplicatePair(t, repo)

	merged, err := svc.Apply(context.Background(), primary.PersonID(), duplicate.PersonID(), map[string]string{
		"employee_number": "EMP-00000002",
		"first_name":      "Micheal",
	}, "admin@example.com")
	require.NoError(t, err)

	require.Equal(t, "EMP-00000002", merged.EmployeeNumber())
	require.Equal(t, "Micheal", merged.FirstName())
}

func TestMergeApply_UnresolvedConflictWritesNothing(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, duplicate := seedDuplicatePair(t, repo)
	ctx := context.Background()

	_, err := svc.Apply(ctx, primary.PersonID(), duplicate.PersonID(), map[string]string{
		"employee_number": "EMP-00000001",
		// first_name left unresolved
	}, "admin@example.com")
	require.ErrorIs(t, err, services.ErrMergeConflict)

	still, err := repo.GetByID(ctx, duplicate.PersonID())
	require.NoError(t, err)
	require.True(t, still.IsActive())
	require.Empty(t, repo.Merges())
}

func TestMergeApply_SelfMerge(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, _ := seedDuplicatePair(t, repo)

	_, err := svc.Apply(context.Background(), primary.PersonID(), primary.PersonID(), nil, "admin")
	require.ErrorIs(t, err, services.ErrSelfMerge)
}

func TestMergeApply_RequiresBothActive(t *testing.T) {
	svc, repo := newMergeFixture(t)
	primary, duplicate := seedDuplicatePair(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.Terminate(ctx, duplicate.PersonID(), time.Now(), employee.ReasonResigned))

	_, err := svc.Apply(ctx, primary.PersonID(), duplicate.PersonID(), nil, "admin")
	require.ErrorIs(t, err, services.ErrMergeInactive)
}

func TestMergeApply_GapFilling(t *testing.T) {
	svc, repo := newMergeFixture(t)
	ctx := context.Background()

	primary, err := repo.Create(ctx, employee.New("Dana", "Whitfield").WithEmployeeNumber("EMP-00000003"))
	require.NoError(t, err)

	duplicate, err := repo.Create(ctx, employee.New("Dana", "Whitfeld").
		WithProfile("Dana", "Whitfeld", "", "", "dana.w@example.com", "555-0100").
		WithEmployeeNumber("EMP-00000004"))
	require.NoError(t, err)

	merged, err := svc.Apply(ctx, primary.PersonID(), duplicate.PersonID(), map[string]string{
		"employee_number": "EMP-00000003",
		"last_name":       "Whitfield",
	}, "admin")
	require.NoError(t, err)

	// Fields empty on the primary are taken from the duplicate without a
	// resolution entry.
	require.Equal(t, "dana.w@example.com", merged.Email())
	require.Equal(t, "555-0100", merged.Phone())
	require.Equal(t, "Whitfield", merged.LastName())
}
