package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/pkg/composables"
	"github.com/crewledger/crewledger/pkg/eventbus"
	"github.com/crewledger/crewledger/pkg/metrics"
	"github.com/crewledger/crewledger/pkg/serrors"
)

var (
	ErrMergeConflict = serrors.NewError("MERGE_CONFLICT", "merge has unresolved field conflicts", "")
	ErrSelfMerge     = serrors.NewError("MERGE_SELF", "primary and duplicate must be different employees", "")
	ErrMergeInactive = serrors.NewError("MERGE_INACTIVE", "both employees must be active to merge", "")
)

// FieldConflict is one field where the two records disagree and a human must
// choose the surviving value.
type FieldConflict struct {
	Field          string
	PrimaryValue   string
	DuplicateValue string
}

// MergePreview is ephemeral: computed on demand, discarded after the merge
// decision is applied or rejected.
type MergePreview struct {
	PrimaryID   uuid.UUID
	DuplicateID uuid.UUID
	Conflicts   []FieldConflict
	// AliasUnion lists the aliases the duplicate would contribute to the
	// primary.
	AliasUnion []string
}

// MergeService reconciles two employee records believed to represent one
// person. History attributed to the duplicate id is never rewritten; it
// resolves to the primary through the merged-into back-reference.
type MergeService struct {
	repo      employee.Repository
	publisher eventbus.EventBus
	recorder  metrics.Recorder
	log       logrus.FieldLogger
}

func NewMergeService(repo employee.Repository, publisher eventbus.EventBus, recorder metrics.Recorder, log logrus.FieldLogger) *MergeService {
	return &MergeService{
		repo:      repo,
		publisher: publisher,
		recorder:  recorder,
		log:       log,
	}
}

// Preview computes the field conflicts and alias union for a prospective
// merge. Read-only.
func (s *MergeService) Preview(ctx context.Context, primaryID, duplicateID uuid.UUID) (MergePreview, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (MergePreview, error) {
		primary, duplicate, err := s.loadPair(txCtx, primaryID, duplicateID)
		if err != nil {
			return MergePreview{}, err
		}
		return buildPreview(primary, duplicate), nil
	})
}

// Apply executes the merge. Every conflict listed by Preview must carry a
// resolution; otherwise the attempt fails with ErrMergeConflict and nothing
// is written.
func (s *MergeService) Apply(ctx context.Context, primaryID, duplicateID uuid.UUID, resolution map[string]string, actor string) (employee.Employee, error) {
	merged, err := composables.InTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		primary, duplicate, err := s.loadPair(txCtx, primaryID, duplicateID)
		if err != nil {
			return employee.Employee{}, err
		}

		preview := buildPreview(primary, duplicate)
		var unresolved []string
		for _, c := range preview.Conflicts {
			if _, ok := resolution[c.Field]; !ok {
				unresolved = append(unresolved, c.Field)
			}
		}
		if len(unresolved) > 0 {
			return employee.Employee{}, ErrMergeConflict.WithHint("unresolved: " + strings.Join(unresolved, ", "))
		}

		now := time.Now()

		// Terminate the duplicate first so the alias uniqueness
		// constraint over active employees never sees two owners.
		if err := s.repo.Update(txCtx, duplicate.WithMergedInto(primary.PersonID(), now)); err != nil {
			return employee.Employee{}, err
		}

		merged := resolveFields(primary, duplicate, preview.Conflicts, resolution)
		merged = merged.WithAliases(duplicate.KnownAliases())
		if err := s.repo.Update(txCtx, merged); err != nil {
			return employee.Employee{}, err
		}

		if err := s.repo.ReassignAliases(txCtx, duplicate.PersonID(), primary.PersonID()); err != nil {
			return employee.Employee{}, err
		}

		if err := s.repo.RecordMerge(txCtx, employee.MergeRecord{
			PrimaryID:      primary.PersonID(),
			DuplicateID:    duplicate.PersonID(),
			ResolvedFields: resolution,
			Actor:          actor,
			CreatedAt:      now,
		}); err != nil {
			return employee.Employee{}, err
		}

		return s.repo.GetByID(txCtx, primary.PersonID())
	})
	if err != nil {
		return employee.Employee{}, err
	}

	s.publisher.Publish(employee.NewMergedEvent(primaryID, duplicateID))
	s.recorder.MergeApplied()
	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"primary":   primaryID,
			"duplicate": duplicateID,
			"actor":     actor,
		}).Info("employee records merged")
	}
	return merged, nil
}

func (s *MergeService) loadPair(ctx context.Context, primaryID, duplicateID uuid.UUID) (employee.Employee, employee.Employee, error) {
	if primaryID == duplicateID {
		return employee.Employee{}, employee.Employee{}, ErrSelfMerge
	}
	primary, err := s.repo.GetByID(ctx, primaryID)
	if err != nil {
		return employee.Employee{}, employee.Employee{}, err
	}
	duplicate, err := s.repo.GetByID(ctx, duplicateID)
	if err != nil {
		return employee.Employee{}, employee.Employee{}, err
	}
	if !primary.IsActive() || !duplicate.IsActive() {
		return employee.Employee{}, employee.Employee{}, ErrMergeInactive
	}
	return primary, duplicate, nil
}

// mergeFields enumerates the profile attributes a merge reconciles, paired
// with their accessors.
var mergeFields = []struct {
	name string
	get  func(employee.Employee) string
}{
	{"employee_number", employee.Employee.EmployeeNumber},
	{"first_name", employee.Employee.FirstName},
	{"last_name", employee.Employee.LastName},
	{"middle_name", employee.Employee.MiddleName},
	{"preferred_name", employee.Employee.PreferredName},
	{"email", employee.Employee.Email},
	{"phone", employee.Employee.Phone},
}

func buildPreview(primary, duplicate employee.Employee) MergePreview {
	preview := MergePreview{
		PrimaryID:   primary.PersonID(),
		DuplicateID: duplicate.PersonID(),
	}

	for _, f := range mergeFields {
		pv, dv := f.get(primary), f.get(duplicate)
		// One side empty is gap-filling, not a conflict.
		if pv != "" && dv != "" && pv != dv {
			preview.Conflicts = append(preview.Conflicts, FieldConflict{
				Field:          f.name,
				PrimaryValue:   pv,
				DuplicateValue: dv,
			})
		}
	}

	for _, alias := range duplicate.KnownAliases() {
		if !primary.HasAlias(alias) {
			preview.AliasUnion = append(preview.AliasUnion, alias)
		}
	}
	sort.Strings(preview.AliasUnion)

	return preview
}

// resolveFields folds the human-resolved values (and the duplicate's
// gap-filling values) onto the primary.
func resolveFields(primary, duplicate employee.Employee, conflicts []FieldConflict, resolution map[string]string) employee.Employee {
	final := make(map[string]string, len(mergeFields))
	for _, f := range mergeFields {
		pv, dv := f.get(primary), f.get(duplicate)
		switch {
		case pv == "":
			final[f.name] = dv
		default:
			final[f.name] = pv
		}
	}
	for _, c := range conflicts {
		final[c.Field] = resolution[c.Field]
	}

	merged := primary.WithEmployeeNumber(final["employee_number"])
	merged = merged.WithProfile(
		final["first_name"],
		final["last_name"],
		final["middle_name"],
		final["preferred_name"],
		final["email"],
		final["phone"],
	)
	return merged
}

// Describe renders a preview for human review, used by the admin CLI.
func Describe(p MergePreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "merge %s <- %s\n", p.PrimaryID, p.DuplicateID)
	if len(p.Conflicts) == 0 {
		b.WriteString("no field conflicts\n")
	}
	for _, c := range p.Conflicts {
		fmt.Fprintf(&b, "conflict %s: primary=%q duplicate=%q\n", c.Field, c.PrimaryValue, c.DuplicateValue)
	}
	if len(p.AliasUnion) > 0 {
		fmt.Fprintf(&b, "aliases gained: %s\n", strings.Join(p.AliasUnion, ", "))
	}
	return b.String()
}
