package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/infrastructure/persistence"
	"github.com/crewledger/crewledger/modules/identity/services"
	"github.com/crewledger/crewledger/pkg/metrics"
)

func newEmployeeFixture(t *testing.T) (*services.EmployeeService, *persistence.InMemoryRepository) {
	t.Helper()
	repo := persistence.NewInMemoryRepository()
	return services.NewEmployeeService(repo, quietBus()), repo
}

func TestEmployeeService_Create(t *testing.T) {
	svc, _ := newEmployeeFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &employee.CreateDTO{
		FirstName: "Maria",
		LastName:  "Santos",
		Email:     "maria.santos@example.com",
	})
	require.NoError(t, err)

	require.Equal(t, "Maria", created.FirstName())
	require.Equal(t, "Santos", created.LastName())
	require.False(t, created.NeedsProfileCompletion())
	require.True(t, created.IsActive())
	require.NotEmpty(t, created.EmployeeNumber())
	require.True(t, created.HasAlias("maria santos"))
}

func TestEmployeeService_CreateValidation(t *testing.T) {
	svc, _ := newEmployeeFixture(t)
	ctx := context.Background()

	for name, dto := range map[string]*employee.CreateDTO{
		"missing first name": {LastName: "Santos"},
		"missing last name":  {FirstName: "Maria"},
		"bad email":          {FirstName: "Maria", LastName: "Santos", Email: "not-an-email"},
	} {
		_, err := svc.Create(ctx, dto)
		require.ErrorIs(t, err, employee.ErrInvalidData, name)
	}
}

func TestEmployeeService_CreateRejectsDuplicateName(t *testing.T) {
	svc, _ := newEmployeeFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &employee.CreateDTO{FirstName: "Maria", LastName: "Santos"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &employee.CreateDTO{FirstName: "Maria", LastName: "Santos"})
	require.ErrorIs(t, err, employee.ErrDuplicate)
}

func TestEmployeeService_UpdateCompletesProfile(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	stub, err := repo.Create(ctx, employee.NewFromMention("Owen Glassburn", employee.MentionContext{}))
	require.NoError(t, err)
	require.True(t, stub.NeedsProfileCompletion())

	email := "owen.glassburn@example.com"
	preferred := "Oz"
	updated, err := svc.Update(ctx, stub.PersonID(), &employee.UpdateDTO{
		Email:         &email,
		PreferredName: &preferred,
	})
	require.NoError(t, err)

	require.False(t, updated.NeedsProfileCompletion())
	require.Equal(t, "Oz Glassburn", updated.FullName())
	require.Equal(t, email, updated.Email())
	// The legal-name identity key is untouched by a preferred name.
	require.Equal(t, "owen glassburn", updated.NormalizedName())
}

func TestEmployeeService_UpdateUnknownEmployee(t *testing.T) {
	svc, _ := newEmployeeFixture(t)

	email := "nobody@example.com"
	_, err := svc.Update(context.Background(), uuid.New(), &employee.UpdateDTO{Email: &email})
	require.ErrorIs(t, err, employee.ErrNotFound)
}

func TestEmployeeService_Terminate(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &employee.CreateDTO{FirstName: "Paul", LastName: "Weaver"})
	require.NoError(t, err)

	on := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Terminate(ctx, created.PersonID(), on, employee.ReasonResigned))

	got, err := repo.GetByID(ctx, created.PersonID())
	require.NoError(t, err)
	require.Equal(t, employee.StatusTerminated, got.Status())
	require.Equal(t, employee.ReasonResigned, got.TerminationReason())
	require.Equal(t, on, got.TerminatedOn())
}

func TestEmployeeService_TerminateRejectsReservedReasons(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, employee.New("Paul", "Weaver"))
	require.NoError(t, err)

	for _, reason := range []employee.TerminationReason{employee.ReasonNone, employee.ReasonMergedAway} {
		err := svc.Terminate(ctx, created.PersonID(), time.Now(), reason)
		require.ErrorIs(t, err, employee.ErrInvalidData, string(reason))
	}
}

func TestEmployeeService_UpdateCannotReviveTerminated(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, employee.New("Paul", "Weaver"))
	require.NoError(t, err)
	require.NoError(t, repo.Terminate(ctx, created.PersonID(), time.Now(), employee.ReasonResigned))

	active := employee.StatusActive
	_, err = svc.Update(ctx, created.PersonID(), &employee.UpdateDTO{Status: &active})
	require.ErrorIs(t, err, employee.ErrInvalidData)

	got, err := repo.GetByID(ctx, created.PersonID())
	require.NoError(t, err)
	require.Equal(t, employee.StatusTerminated, got.Status())
}

func TestEmployeeService_UpdateCannotReviveMergedDuplicate(t *testing.T) {
	repo := persistence.NewInMemoryRepository()
	empSvc := services.NewEmployeeService(repo, quietBus())
	mergeSvc := services.NewMergeService(repo, quietBus(), metrics.Noop(), quietLog())
	ctx := context.Background()

	primary, duplicate := seedDuplicatePair(t, repo)
	_, err := mergeSvc.Apply(ctx, primary.PersonID(), duplicate.PersonID(), map[string]string{
		"employee_number": "EMP-00000001",
		"first_name":      "Michael",
	}, "admin")
	require.NoError(t, err)

	active := employee.StatusActive
	_, err = empSvc.Update(ctx, duplicate.PersonID(), &employee.UpdateDTO{Status: &active})
	require.ErrorIs(t, err, employee.ErrInvalidData)

	// The merged-away record stays terminated with its back-reference
	// intact; the primary remains the only active one.
	gone, err := repo.GetByID(ctx, duplicate.PersonID())
	require.NoError(t, err)
	require.False(t, gone.IsActive())
	require.Equal(t, employee.ReasonMergedAway, gone.TerminationReason())
	require.Equal(t, primary.PersonID(), gone.MergedInto())
}

func TestEmployeeService_AddAliasNormalizes(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, employee.New("Michael", "Rodriguez"))
	require.NoError(t, err)

	require.NoError(t, svc.AddAlias(ctx, created.PersonID(), "  Mr. Mike Rodríguez "))

	aliases, err := svc.Aliases(ctx, created.PersonID())
	require.NoError(t, err)

	names := make([]string, 0, len(aliases))
	for _, a := range aliases {
		names = append(names, a.NormalizedAlias)
	}
	require.Contains(t, names, "mike rodriguez")
	require.Contains(t, names, "michael rodriguez")
}

func TestEmployeeService_AddAliasConflict(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	mike, err := repo.Create(ctx, employee.New("Michael", "Rodriguez"))
	require.NoError(t, err)
	other, err := repo.Create(ctx, employee.New("Miguel", "Rodriguez"))
	require.NoError(t, err)

	require.NoError(t, svc.AddAlias(ctx, mike.PersonID(), "Mike Rodriguez"))
	err = svc.AddAlias(ctx, other.PersonID(), "Mike Rodriguez")
	require.ErrorIs(t, err, employee.ErrAliasConflict)
}

func TestEmployeeService_ListFilters(t *testing.T) {
	svc, repo := newEmployeeFixture(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, employee.New("Maria", "Santos"))
	require.NoError(t, err)
	stub, err := repo.Create(ctx, employee.NewFromMention("Owen Glassburn", employee.MentionContext{ProjectID: "proj-a"}))
	require.NoError(t, err)

	incomplete := true
	found, err := svc.List(ctx, &employee.FindParams{NeedsProfileCompletion: &incomplete})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, stub.PersonID(), found[0].PersonID())

	onProject, err := svc.List(ctx, &employee.FindParams{ProjectID: "proj-a"})
	require.NoError(t, err)
	require.Len(t, onProject, 1)

	count, err := svc.Count(ctx, &employee.FindParams{Status: employee.StatusActive})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
