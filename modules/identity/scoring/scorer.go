package scoring

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/crewledger/crewledger/modules/identity/matching"
)

// Weights for the overall blend. Extraction quality dominates because a
// garbled transcript poisons every downstream signal.
const (
	extractionWeight = 0.40
	matchWeight      = 0.35
	historyWeight    = 0.25
	anomalyPenalty   = 15.0
)

const (
	defaultReviewFloor          = 60.0
	defaultNewEntityReviewFloor = 85.0
)

// positionVocabulary is the controlled role vocabulary used on site reports.
var positionVocabulary = []string{
	"Project Manager",
	"Foreman",
	"Journeyman",
	"Apprentice",
	"Superintendent",
	"Laborer",
}

var hoursPattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*hours?\b`)

// Scorer blends independent extraction signals into one actionable
// confidence number. All methods are pure; a Scorer is safe to share across
// goroutines.
type Scorer struct {
	reviewFloor          float64
	newEntityReviewFloor float64
}

func NewScorer() Scorer {
	return Scorer{
		reviewFloor:          defaultReviewFloor,
		newEntityReviewFloor: defaultNewEntityReviewFloor,
	}
}

// NewScorerWithFloors overrides the review thresholds, for configured
// deployments.
func NewScorerWithFloors(reviewFloor, newEntityReviewFloor float64) Scorer {
	return Scorer{
		reviewFloor:          reviewFloor,
		newEntityReviewFloor: newEntityReviewFloor,
	}
}

// Overall blends the sub-scores and subtracts the anomaly penalty. The more
// unusual the observation relative to history, the lower the trust.
func (s Scorer) Overall(extraction, match, history, anomaly float64) float64 {
	overall := extraction*extractionWeight + match*matchWeight + history*historyWeight
	overall -= anomaly / 100 * anomalyPenalty
	return clamp(overall)
}

// ScoreName rates how trustworthy a raw name mention is on its own.
// occurrences is how many times the same raw alias appeared in the source
// text.
func (s Scorer) ScoreName(raw string, occurrences int) float64 {
	canonical := matching.Normalize(raw)

	score := 100.0
	if !matching.HasSurname(canonical) {
		score -= 20
	}
	if len(canonical) < 3 {
		score -= 30
	}
	if hasDigitsOrSymbols(raw) {
		score -= 40
	}
	if occurrences > 1 {
		score += 10
	}
	return clamp(score)
}

// ScorePosition rates a reported role against the controlled vocabulary,
// falling back to corroboration from the raw transcript.
func (s Scorer) ScorePosition(position, sourceText string) float64 {
	trimmed := strings.TrimSpace(position)
	if trimmed == "" {
		return 40
	}

	for _, known := range positionVocabulary {
		if strings.EqualFold(trimmed, known) {
			return 95
		}
	}

	canonical := matching.Normalize(trimmed)
	for _, known := range positionVocabulary {
		if matching.Similarity(canonical, matching.Normalize(known)) > 80 {
			return 75
		}
	}

	if sourceText != "" && strings.Contains(strings.ToLower(sourceText), strings.ToLower(trimmed)) {
		return 60
	}

	return 40
}

// ScoreHours rates reported hours for plausibility on a single shift.
// An out-of-range shift caps at 50 no matter how well corroborated.
func (s Scorer) ScoreHours(hoursWorked, overtime float64, sourceText string) float64 {
	score := 100.0
	inRange := hoursWorked >= 0 && hoursWorked <= 16
	if !inRange {
		score -= 50
	}
	if overtime < 0 || overtime > 8 {
		score -= 30
	}
	if hoursWorked > 12 && hoursWorked <= 16 {
		score -= 10
	}
	if inRange && hoursPattern.MatchString(sourceText) {
		score += 10
	}
	return clamp(score)
}

// NeedsReview is the gate deciding whether a human must confirm the result.
// Newly created identities with merely moderate confidence are the highest
// risk for silent misattribution, so they get a stricter floor.
func (s Scorer) NeedsReview(overall float64, newlyCreated, criticalSeverity bool) bool {
	if criticalSeverity {
		return true
	}
	if overall < s.reviewFloor {
		return true
	}
	if newlyCreated && overall < s.newEntityReviewFloor {
		return true
	}
	return false
}

func hasDigitsOrSymbols(raw string) bool {
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '-', '\'', '.', ',':
			continue
		}
		return true
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
