package scrub

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-scrub/metrics"
)

const subsystem = "merkle"

var (
	comparisons = metrics.NewCounter(
		"comparisons",
		subsystem,
		"Number of merkle tree comparisons by outcome",
		[]string{"outcome"},
	)
	equalComparisons     = comparisons.WithLabelValues("equal")
	divergentComparisons = comparisons.WithLabelValues("divergent")
	failedComparisons    = comparisons.WithLabelValues("error")

	divergentRanges = metrics.NewHistogramWithBuckets(
		"divergent_ranges",
		subsystem,
		"Number of merged divergent hash ranges per comparison",
		[]string{},
		prometheus.ExponentialBuckets(1, 2, 16),
	).WithLabelValues()

	compareDuration = metrics.NewHistogramWithBuckets(
		"compare_duration_seconds",
		subsystem,
		"Duration of merkle tree comparisons",
		[]string{},
		prometheus.ExponentialBuckets(1e-6, 4, 12),
	).WithLabelValues()

	messages = metrics.NewCounter(
		"messages",
		subsystem,
		"Number of object info messages handled by op",
		[]string{"op"},
	)

	trackedPeers = metrics.NewGauge(
		"tracked_peers",
		subsystem,
		"Number of peers with a recorded comparison outcome",
		[]string{},
	).WithLabelValues()
)
