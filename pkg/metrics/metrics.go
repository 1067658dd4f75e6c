package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the counters the identity services increment. Using an
// interface keeps services testable without a live registry.
type Recorder interface {
	MatchResolved(tier string, needsReview bool)
	MergeApplied()
}

type promRecorder struct {
	matches *prometheus.CounterVec
	reviews prometheus.Counter
	merges  prometheus.Counter
}

// NewRecorder registers the identity counters on the given registerer. Pass
// prometheus.DefaultRegisterer in production.
func NewRecorder(reg prometheus.Registerer) Recorder {
	factory := promauto.With(reg)
	return &promRecorder{
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_match_resolutions_total",
			Help: "Employee match resolutions by confidence tier.",
		}, []string{"tier"}),
		reviews: factory.NewCounter(prometheus.CounterOpts{
			Name: "identity_match_reviews_total",
			Help: "Match resolutions flagged for human review.",
		}),
		merges: factory.NewCounter(prometheus.CounterOpts{
			Name: "identity_merges_applied_total",
			Help: "Employee merge operations applied.",
		}),
	}
}

func (r *promRecorder) MatchResolved(tier string, needsReview bool) {
	r.matches.WithLabelValues(tier).Inc()
	if needsReview {
		r.reviews.Inc()
	}
}

func (r *promRecorder) MergeApplied() {
	r.merges.Inc()
}

// Noop returns a recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) MatchResolved(string, bool) {}
func (noopRecorder) MergeApplied()              {}
