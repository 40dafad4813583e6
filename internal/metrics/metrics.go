package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction paths
const (
	PathAI       = "ai"
	PathRules    = "rules"
	PathFallback = "fallback"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_extractions_total",
			Help: "Search filter extractions by path (ai, rules, fallback after a failed ai call)",
		},
		[]string{"path"},
	)

	ListingsFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_listings_fetch_total",
			Help: "Listings provider fetches by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ListingsFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_listings_fetch_duration_seconds",
			Help:    "Listings provider fetch latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ListingsCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_listings_cache_total",
			Help: "Listings cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ChatRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_replies_total",
			Help: "Chat replies by outcome (llm, summary, soft_failure)",
		},
		[]string{"outcome"},
	)

	AvatarQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_avatar_queue_depth",
			Help: "Utterances waiting for the avatar",
		},
	)
)
