package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/matching"
	"github.com/crewledger/crewledger/pkg/composables"
	"github.com/crewledger/crewledger/pkg/eventbus"
)

// EmployeeService is the admin-facing CRUD surface over employee records.
// Matching decisions live in MatchingService; merges in MergeService.
type EmployeeService struct {
	repo      employee.Repository
	publisher eventbus.EventBus
}

func NewEmployeeService(repo employee.Repository, publisher eventbus.EventBus) *EmployeeService {
	return &EmployeeService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *EmployeeService) GetByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *EmployeeService) GetByNumber(ctx context.Context, number string) (employee.Employee, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		return s.repo.GetByNumber(txCtx, number)
	})
}

func (s *EmployeeService) SearchByName(ctx context.Context, query string) ([]employee.Employee, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) ([]employee.Employee, error) {
		return s.repo.SearchByName(txCtx, query)
	})
}

func (s *EmployeeService) List(ctx context.Context, params *employee.FindParams) ([]employee.Employee, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) ([]employee.Employee, error) {
		return s.repo.List(txCtx, params)
	})
}

func (s *EmployeeService) Count(ctx context.Context, params *employee.FindParams) (int64, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.repo.Count(txCtx, params)
	})
}

func (s *EmployeeService) Create(ctx context.Context, data *employee.CreateDTO) (employee.Employee, error) {
	if fieldErrs, ok := data.Ok(); !ok {
		return employee.Employee{}, employee.ErrInvalidData.WithHint(fmt.Sprintf("%v", fieldErrs))
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		entity := data.ToEntity()
		if entity.EmployeeNumber() == "" {
			entity = entity.WithEmployeeNumber(autoEmployeeNumber(entity.PersonID()))
		}
		created, err := s.repo.Create(txCtx, entity)
		if err != nil {
			return employee.Employee{}, err
		}
		s.publisher.Publish(employee.NewCreatedEvent(created, false))
		return created, nil
	})
}

func (s *EmployeeService) Update(ctx context.Context, id uuid.UUID, data *employee.UpdateDTO) (employee.Employee, error) {
	if fieldErrs, ok := data.Ok(); !ok {
		return employee.Employee{}, employee.ErrInvalidData.WithHint(fmt.Sprintf("%v", fieldErrs))
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return employee.Employee{}, err
		}
		// Termination is final: a merged-away or terminated record must
		// never come back to life, or its alias ownership and merge
		// back-reference stop making sense.
		if data.Status != nil && current.Status() == employee.StatusTerminated {
			return employee.Employee{}, employee.ErrInvalidData.WithHint("terminated employees cannot change status")
		}
		updated := data.Apply(current)
		if err := s.repo.Update(txCtx, updated); err != nil {
			return employee.Employee{}, err
		}
		s.publisher.Publish(employee.NewUpdatedEvent(updated))
		return updated, nil
	})
}

func (s *EmployeeService) Terminate(ctx context.Context, id uuid.UUID, on time.Time, reason employee.TerminationReason) error {
	if reason == employee.ReasonNone || reason == employee.ReasonMergedAway {
		return employee.ErrInvalidData.WithHint("termination reason must be resigned or dismissed")
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Terminate(txCtx, id, on, reason); err != nil {
			return err
		}
		s.publisher.Publish(employee.NewTerminatedEvent(current.WithTermination(on, reason), reason))
		return nil
	})
}

// AddAlias registers a raw alias string for an employee. The alias is
// normalized before storage; adding an alias the employee already holds is a
// no-op.
func (s *EmployeeService) AddAlias(ctx context.Context, id uuid.UUID, rawAlias string) error {
	canonical := matching.Normalize(rawAlias)
	if canonical == "" {
		return employee.ErrInvalidData.WithHint(fmt.Sprintf("unusable alias %q", rawAlias))
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.AddAlias(txCtx, id, canonical); err != nil {
			return err
		}
		s.publisher.Publish(employee.NewAliasAddedEvent(id, canonical))
		return nil
	})
}

func (s *EmployeeService) Aliases(ctx context.Context, id uuid.UUID) ([]employee.AliasRecord, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) ([]employee.AliasRecord, error) {
		return s.repo.AliasesFor(txCtx, id)
	})
}
