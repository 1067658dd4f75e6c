package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/matching"
	"github.com/crewledger/crewledger/pkg/composables"
	"github.com/crewledger/crewledger/pkg/eventbus"
	"github.com/crewledger/crewledger/pkg/metrics"
)

type Confidence string

const (
	ConfidenceExact       Confidence = "exact"
	ConfidenceHigh        Confidence = "high"
	ConfidenceMedium      Confidence = "medium"
	ConfidenceNewEmployee Confidence = "new_employee"
)

const (
	MethodExact     = "exact_name"
	MethodAlias     = "alias"
	MethodFuzzy     = "fuzzy"
	MethodAmbiguous = "ambiguous_created"
	MethodCreated   = "auto_created"
	MethodRace      = "create_conflict_resolved"
)

// SuggestedMatch is one fuzzy candidate surfaced to a human reviewer when the
// engine declines to guess.
type SuggestedMatch struct {
	PersonID   uuid.UUID
	FullName   string
	Similarity int
	Rationale  string
}

// MatchResult is ephemeral: consumed by the report pipeline, never persisted.
type MatchResult struct {
	EmployeeID       uuid.UUID
	Confidence       Confidence
	NeedsReview      bool
	MatchedName      string
	MatchMethod      string
	SuggestedMatches []SuggestedMatch
}

// MatchingService decides whether a free-text name mention refers to a known
// employee. Precedence is strict: exact name, alias, fuzzy, create.
type MatchingService struct {
	repo           employee.Repository
	publisher      eventbus.EventBus
	recorder       metrics.Recorder
	log            logrus.FieldLogger
	fuzzyThreshold int
}

func NewMatchingService(
	repo employee.Repository,
	publisher eventbus.EventBus,
	recorder metrics.Recorder,
	log logrus.FieldLogger,
	fuzzyThreshold int,
) *MatchingService {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = 80
	}
	return &MatchingService{
		repo:           repo,
		publisher:      publisher,
		recorder:       recorder,
		log:            log,
		fuzzyThreshold: fuzzyThreshold,
	}
}

// MatchOrCreate resolves rawName to an existing employee or creates a new
// record. Exactly one of {no write, alias write, employee create} happens per
// call, plus a provenance update on the matched record.
func (s *MatchingService) MatchOrCreate(ctx context.Context, rawName string, mention employee.MentionContext) (MatchResult, error) {
	canonical := matching.Normalize(rawName)
	if canonical == "" {
		return MatchResult{}, employee.ErrInvalidData.WithHint(fmt.Sprintf("unusable name mention %q", rawName))
	}

	result, err := composables.InTxResult(ctx, func(txCtx context.Context) (MatchResult, error) {
		return s.resolve(txCtx, rawName, canonical, mention)
	})
	if err != nil {
		return MatchResult{}, err
	}

	s.recorder.MatchResolved(string(result.Confidence), result.NeedsReview)
	return result, nil
}

func (s *MatchingService) resolve(ctx context.Context, rawName, canonical string, mention employee.MentionContext) (MatchResult, error) {
	// 1. Exact match on the canonical full name.
	if found, err := s.repo.GetByNormalizedName(ctx, canonical); err == nil {
		if err := s.recordSighting(ctx, found, mention); err != nil {
			return MatchResult{}, err
		}
		s.publisher.Publish(employee.NewMatchedEvent(found, rawName, MethodExact))
		return MatchResult{
			EmployeeID:  found.PersonID(),
			Confidence:  ConfidenceExact,
			MatchedName: found.FullName(),
			MatchMethod: MethodExact,
		}, nil
	} else if !errors.Is(err, employee.ErrNotFound) {
		return MatchResult{}, err
	}

	// 2. Exact alias lookup. The alias row already exists, so the hit is
	// reinforcing evidence and needs no write.
	if alias, err := s.repo.FindAlias(ctx, canonical); err == nil {
		found, err := s.repo.GetByID(ctx, alias.PersonID)
		if err != nil {
			return MatchResult{}, err
		}
		if found.IsActive() {
			if err := s.recordSighting(ctx, found, mention); err != nil {
				return MatchResult{}, err
			}
			s.publisher.Publish(employee.NewMatchedEvent(found, rawName, MethodAlias))
			return MatchResult{
				EmployeeID:  found.PersonID(),
				Confidence:  ConfidenceHigh,
				MatchedName: found.FullName(),
				MatchMethod: MethodAlias,
			}, nil
		}
	} else if !errors.Is(err, employee.ErrAliasNotFound) {
		return MatchResult{}, err
	}

	// 3. Fuzzy candidate search over active employees, narrowed to the
	// project roster when context gives one.
	candidates, err := s.fuzzyCandidates(ctx, canonical, mention.ProjectID)
	if err != nil {
		return MatchResult{}, err
	}

	switch len(candidates) {
	case 1:
		found := candidates[0].entity
		if err := s.repo.AddAlias(ctx, found.PersonID(), canonical); err != nil {
			if errors.Is(err, employee.ErrAliasConflict) {
				// Lost a race: the alias now belongs to someone
				// else. Re-resolve through the alias path.
				return s.resolve(ctx, rawName, canonical, mention)
			}
			return MatchResult{}, err
		}
		if err := s.recordSighting(ctx, found, mention); err != nil {
			return MatchResult{}, err
		}
		// A near-miss on an already-indexed alias is stronger evidence
		// than a near-miss on the legal name.
		confidence, method := ConfidenceMedium, MethodFuzzy
		if candidates[0].viaAlias {
			confidence, method = ConfidenceHigh, MethodAlias
		}
		s.publisher.Publish(employee.NewAliasAddedEvent(found.PersonID(), canonical))
		s.publisher.Publish(employee.NewMatchedEvent(found, rawName, method))
		return MatchResult{
			EmployeeID:  found.PersonID(),
			Confidence:  confidence,
			MatchedName: found.FullName(),
			MatchMethod: method,
		}, nil

	case 0:
		// 5. Genuinely new person: the expected, non-exceptional case.
		created, raced, err := s.create(ctx, rawName, canonical, mention)
		if err != nil {
			return MatchResult{}, err
		}
		if raced {
			return MatchResult{
				EmployeeID:  created.PersonID(),
				Confidence:  ConfidenceHigh,
				MatchedName: created.FullName(),
				MatchMethod: MethodRace,
			}, nil
		}
		return MatchResult{
			EmployeeID:  created.PersonID(),
			Confidence:  ConfidenceNewEmployee,
			MatchedName: created.FullName(),
			MatchMethod: MethodCreated,
		}, nil

	default:
		// 4b. Ambiguous: never guess. A false split is recoverable via
		// merge; a false merge is not.
		created, _, err := s.create(ctx, rawName, canonical, mention)
		if err != nil {
			return MatchResult{}, err
		}
		suggestions := make([]SuggestedMatch, 0, len(candidates))
		for _, c := range candidates {
			suggestions = append(suggestions, SuggestedMatch{
				PersonID:   c.entity.PersonID(),
				FullName:   c.entity.FullName(),
				Similarity: c.similarity,
				Rationale: fmt.Sprintf("normalized name %q is %d%% similar to %q",
					canonical, c.similarity, c.entity.NormalizedName()),
			})
		}
		if s.log != nil {
			s.log.WithFields(logrus.Fields{
				"raw_name":   rawName,
				"candidates": len(candidates),
			}).Warn("ambiguous name mention, created new employee for review")
		}
		return MatchResult{
			EmployeeID:       created.PersonID(),
			Confidence:       ConfidenceNewEmployee,
			NeedsReview:      true,
			MatchMethod:      MethodAmbiguous,
			SuggestedMatches: suggestions,
		}, nil
	}
}

type scoredCandidate struct {
	entity     employee.Employee
	similarity int
	viaAlias   bool
}

func (s *MatchingService) fuzzyCandidates(ctx context.Context, canonical, projectID string) ([]scoredCandidate, error) {
	score := func(pool []employee.Employee) []scoredCandidate {
		var out []scoredCandidate
		for _, cand := range pool {
			best := matching.Similarity(canonical, cand.NormalizedName())
			viaAlias := false
			for _, alias := range cand.KnownAliases() {
				if sim := matching.Similarity(canonical, alias); sim > best {
					best = sim
					viaAlias = true
				}
			}
			if best >= s.fuzzyThreshold {
				out = append(out, scoredCandidate{entity: cand, similarity: best, viaAlias: viaAlias})
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].similarity > out[j].similarity })
		return out
	}

	// The site crew roster is a strong prior, but a hit outside the
	// roster is still a hit: fall back to the full active set when the
	// roster yields nothing.
	if projectID != "" {
		roster, err := s.repo.List(ctx, &employee.FindParams{Status: employee.StatusActive, ProjectID: projectID})
		if err != nil {
			return nil, err
		}
		if matched := score(roster); len(matched) > 0 {
			return matched, nil
		}
	}

	all, err := s.repo.List(ctx, &employee.FindParams{Status: employee.StatusActive})
	if err != nil {
		return nil, err
	}
	return score(all), nil
}

// create persists a new auto-created employee. When the conditional write
// loses a concurrent-create race it re-resolves via the winner's record
// instead of creating a duplicate.
func (s *MatchingService) create(ctx context.Context, rawName, canonical string, mention employee.MentionContext) (employee.Employee, bool, error) {
	entity := employee.NewFromMention(rawName, mention)
	entity = entity.WithEmployeeNumber(autoEmployeeNumber(entity.PersonID()))

	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		if errors.Is(err, employee.ErrDuplicate) {
			winner, lookupErr := s.repo.GetByNormalizedName(ctx, canonical)
			if lookupErr != nil {
				return employee.Employee{}, false, err
			}
			s.publisher.Publish(employee.NewMatchedEvent(winner, rawName, MethodRace))
			return winner, true, nil
		}
		return employee.Employee{}, false, err
	}

	s.publisher.Publish(employee.NewCreatedEvent(created, true))
	return created, false, nil
}

// recordSighting updates the match-provenance trail on every successful
// resolution.
func (s *MatchingService) recordSighting(ctx context.Context, found employee.Employee, mention employee.MentionContext) error {
	return s.repo.Update(ctx, found.WithSighting(mention))
}

func autoEmployeeNumber(id uuid.UUID) string {
	return "EMP-" + strings.ToUpper(id.String()[:8])
}
