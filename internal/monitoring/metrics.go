// internal/monitoring/metrics.go
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes harvest counters through Prometheus. It satisfies the
// pipeline's MetricsRecorder interface.
type Metrics struct {
	articlesScanned prometheus.Counter
	candidatesFound *prometheus.CounterVec
	duplicatesTotal *prometheus.CounterVec
	resolutionsOK   prometheus.Counter
	resolutionsFail prometheus.Counter
	feedsProcessed  prometheus.Counter
	feedsFailed     prometheus.Counter
	runDuration     prometheus.Histogram
}

// NewMetrics registers the harvest metrics with reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		articlesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "articles_scanned_total",
			Help:      "Articles scanned for media links.",
		}),
		candidatesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "candidates_found_total",
			Help:      "Candidate media links found, by kind.",
		}, []string{"kind"}),
		duplicatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "duplicates_skipped_total",
			Help:      "Candidates skipped as duplicates within a run, by kind.",
		}, []string{"kind"}),
		resolutionsOK: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "resolutions_succeeded_total",
			Help:      "Bandcamp pages resolved to an embeddable id.",
		}),
		resolutionsFail: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "resolutions_failed_total",
			Help:      "Bandcamp candidates dropped after resolution failed.",
		}),
		feedsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "feeds_processed_total",
			Help:      "Feeds processed to completion.",
		}),
		feedsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "embedfeed",
			Name:      "feeds_failed_total",
			Help:      "Feeds abandoned after an error.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "embedfeed",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of complete harvest runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) ArticleScanned()              { m.articlesScanned.Inc() }
func (m *Metrics) CandidateFound(kind string)   { m.candidatesFound.WithLabelValues(kind).Inc() }
func (m *Metrics) DuplicateSkipped(kind string) { m.duplicatesTotal.WithLabelValues(kind).Inc() }
func (m *Metrics) ResolutionSucceeded()         { m.resolutionsOK.Inc() }
func (m *Metrics) ResolutionFailed()            { m.resolutionsFail.Inc() }

// FeedProcessed records one completed feed.
func (m *Metrics) FeedProcessed() { m.feedsProcessed.Inc() }

// FeedFailed records one abandoned feed.
func (m *Metrics) FeedFailed() { m.feedsFailed.Inc() }

// RunCompleted records the duration of a whole run.
func (m *Metrics) RunCompleted(seconds float64) { m.runDuration.Observe(seconds) }
