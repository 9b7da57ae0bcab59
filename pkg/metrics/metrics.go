package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "secureblog"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Screenings = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "screenings_total", Help: "Screening decisions by kind (create|edit) and outcome."},
		[]string{"kind", "outcome"},
	)
	SimilarityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "similarity_score_percent",
		Help:      "Similarity of screened content to its nearest corpus entry.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})
	MachineLikelihood = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "machine_likelihood_score",
		Help:      "Machine-likelihood score of accepted content.",
		Buckets:   prometheus.LinearBuckets(5, 10, 10),
	})
	Revisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "revisions_appended_total", Help: "Revisions appended by kind (initial|edit|restore)."},
		[]string{"kind"},
	)
	ArchiveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "revision_archive_failures_total", Help: "Revisions that could not be copied to object storage."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed, RateLimitRejected, Screenings, SimilarityScore, MachineLikelihood, Revisions, ArchiveFailures)
}
