package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
)

// InMemoryRepository implements employee.Repository over plain maps. It keeps
// the same conditional-write semantics as the Postgres repository and backs
// the service tests and single-process setups.
type InMemoryRepository struct {
	mu        sync.RWMutex
	employees map[uuid.UUID]employee.Employee
	aliases   map[string]aliasEntry
	merges    []employee.MergeRecord
}

type aliasEntry struct {
	personID  uuid.UUID
	createdAt time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		employees: map[uuid.UUID]employee.Employee{},
		aliases:   map[string]aliasEntry{},
	}
}

func (r *InMemoryRepository) GetByID(_ context.Context, id uuid.UUID) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrNotFound
	}
	return r.hydrate(found), nil
}

func (r *InMemoryRepository) GetByNumber(_ context.Context, number string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.employees {
		if e.EmployeeNumber() == number {
			return r.hydrate(e), nil
		}
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (r *InMemoryRepository) GetByNormalizedName(_ context.Context, normalizedName string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if found, ok := r.activeByName(normalizedName); ok {
		return r.hydrate(found), nil
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (r *InMemoryRepository) SearchByName(_ context.Context, query string) ([]employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	var out []employee.Employee
	for _, e := range r.employees {
		haystack := strings.ToLower(strings.Join([]string{
			e.NormalizedName(), e.FirstName(), e.LastName(), e.PreferredName(),
		}, " "))
		if strings.Contains(haystack, q) {
			out = append(out, r.hydrate(e))
		}
	}
	sortEmployees(out)
	return out, nil
}

func (r *InMemoryRepository) List(_ context.Context, params *employee.FindParams) ([]employee.Employee, error) {
	if params == nil {
		params = &employee.FindParams{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []employee.Employee
	for _, e := range r.employees {
		if !matchesParams(e, params) {
			continue
		}
		out = append(out, r.hydrate(e))
	}
	sortEmployees(out)

	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) Count(_ context.Context, params *employee.FindParams) (int64, error) {
	if params == nil {
		params = &employee.FindParams{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, e := range r.employees {
		if matchesParams(e, params) {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) Create(_ context.Context, data employee.Employee) (employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.employees[data.PersonID()]; exists {
		return employee.Employee{}, employee.ErrDuplicate
	}
	if data.IsActive() {
		if _, taken := r.activeByName(data.NormalizedName()); taken {
			return employee.Employee{}, employee.ErrDuplicate
		}
	}
	if data.EmployeeNumber() != "" {
		for _, e := range r.employees {
			if e.EmployeeNumber() == data.EmployeeNumber() {
				return employee.Employee{}, employee.ErrDuplicate
			}
		}
	}
	for _, alias := range data.KnownAliases() {
		entry, taken := r.aliases[alias]
		if !taken || entry.personID == data.PersonID() {
			continue
		}
		if owner, ok := r.employees[entry.personID]; ok && owner.IsActive() {
			return employee.Employee{}, employee.ErrAliasConflict
		}
	}

	r.employees[data.PersonID()] = data
	now := time.Now()
	for _, alias := range data.KnownAliases() {
		entry, taken := r.aliases[alias]
		if !taken {
			r.aliases[alias] = aliasEntry{personID: data.PersonID(), createdAt: now}
			continue
		}
		if entry.personID != data.PersonID() {
			// Previous owner is no longer active; the alias follows
			// the living record.
			r.aliases[alias] = aliasEntry{personID: data.PersonID(), createdAt: entry.createdAt}
		}
	}
	return r.hydrate(data), nil
}

func (r *InMemoryRepository) Update(_ context.Context, data employee.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[data.PersonID()]; !ok {
		return employee.ErrNotFound
	}
	r.employees[data.PersonID()] = data

	now := time.Now()
	for _, alias := range data.KnownAliases() {
		if _, taken := r.aliases[alias]; !taken {
			r.aliases[alias] = aliasEntry{personID: data.PersonID(), createdAt: now}
		}
	}
	return nil
}

func (r *InMemoryRepository) Terminate(_ context.Context, id uuid.UUID, on time.Time, reason employee.TerminationReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.employees[id]
	if !ok || found.Status() == employee.StatusTerminated {
		return employee.ErrNotFound
	}
	r.employees[id] = found.WithTermination(on, reason)
	return nil
}

func (r *InMemoryRepository) AddAlias(_ context.Context, id uuid.UUID, normalizedAlias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[id]; !ok {
		return employee.ErrNotFound
	}

	entry, taken := r.aliases[normalizedAlias]
	if !taken {
		r.aliases[normalizedAlias] = aliasEntry{personID: id, createdAt: time.Now()}
		return nil
	}
	if entry.personID == id {
		return nil
	}
	owner, ok := r.employees[entry.personID]
	if ok && owner.IsActive() {
		return employee.ErrAliasConflict
	}
	r.aliases[normalizedAlias] = aliasEntry{personID: id, createdAt: entry.createdAt}
	return nil
}

func (r *InMemoryRepository) FindAlias(_ context.Context, normalizedAlias string) (employee.AliasRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.aliases[normalizedAlias]
	if !ok {
		return employee.AliasRecord{}, employee.ErrAliasNotFound
	}
	return employee.AliasRecord{
		PersonID:        entry.personID,
		NormalizedAlias: normalizedAlias,
		CreatedAt:       entry.createdAt,
	}, nil
}

func (r *InMemoryRepository) AliasesFor(_ context.Context, id uuid.UUID) ([]employee.AliasRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []employee.AliasRecord
	for alias, entry := range r.aliases {
		if entry.personID == id {
			out = append(out, employee.AliasRecord{
				PersonID:        id,
				NormalizedAlias: alias,
				CreatedAt:       entry.createdAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedAlias < out[j].NormalizedAlias })
	return out, nil
}

func (r *InMemoryRepository) ReassignAliases(_ context.Context, fromID, toID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for alias, entry := range r.aliases {
		if entry.personID == fromID {
			r.aliases[alias] = aliasEntry{personID: toID, createdAt: entry.createdAt}
		}
	}
	return nil
}

func (r *InMemoryRepository) RecordMerge(_ context.Context, record employee.MergeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.merges = append(r.merges, record)
	return nil
}

// Merges returns the audit log accumulated so far.
func (r *InMemoryRepository) Merges() []employee.MergeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]employee.MergeRecord, len(r.merges))
	copy(out, r.merges)
	return out
}

// hydrate rebuilds the entity with the alias index as the source of truth,
// mirroring how the Postgres repository joins alias rows in. Callers hold
// r.mu.
func (r *InMemoryRepository) hydrate(e employee.Employee) employee.Employee {
	var aliases []string
	for alias, entry := range r.aliases {
		if entry.personID == e.PersonID() {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	return employee.Hydrate(
		e.PersonID(),
		e.EmployeeNumber(),
		e.FirstName(), e.LastName(), e.MiddleName(), e.PreferredName(),
		e.Email(), e.Phone(),
		aliases,
		e.Status(),
		e.TerminationReason(),
		e.TerminatedOn(),
		e.MergedInto(),
		e.NeedsProfileCompletion(),
		e.FirstMentionedDate(),
		e.FirstMentionedReportID(),
		e.LastSeenDate(),
		e.LastSeenProjectID(),
		e.CreatedAt(),
		e.UpdatedAt(),
	)
}

func (r *InMemoryRepository) activeByName(normalizedName string) (employee.Employee, bool) {
	for _, e := range r.employees {
		if e.IsActive() && e.NormalizedName() == normalizedName {
			return e, true
		}
	}
	return employee.Employee{}, false
}

func matchesParams(e employee.Employee, params *employee.FindParams) bool {
	if params.Status != "" && e.Status() != params.Status {
		return false
	}
	if params.ProjectID != "" && e.LastSeenProjectID() != params.ProjectID {
		return false
	}
	if params.NeedsProfileCompletion != nil && e.NeedsProfileCompletion() != *params.NeedsProfileCompletion {
		return false
	}
	if params.Search != "" {
		q := strings.ToLower(params.Search)
		haystack := strings.ToLower(strings.Join([]string{
			e.FirstName(), e.LastName(), e.PreferredName(), e.EmployeeNumber(),
		}, " "))
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

func sortEmployees(out []employee.Employee) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName() != out[j].LastName() {
			return out[i].LastName() < out[j].LastName()
		}
		return out[i].FirstName() < out[j].FirstName()
	})
}
