package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribune_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by statement kind.
	// Observed from the gorm logger's Trace hook.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tribune_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// LikesTotal counts like mutations by reaction type and target kind.
	LikesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribune_likes_total",
		Help: "Total number of like mutations by type and target",
	}, []string{"type", "target"})

	// RatingRecomputeDuration records how long the denormalized rating
	// recompute takes inside the like transaction.
	RatingRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tribune_rating_recompute_duration_seconds",
		Help:    "Duration of user rating recompute in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// PostsCreatedTotal counts created posts.
	PostsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tribune_posts_created_total",
		Help: "Total number of posts created",
	})

	// CommentsCreatedTotal counts created comments.
	CommentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tribune_comments_created_total",
		Help: "Total number of comments created",
	})

	// CacheRequests counts cache lookups by key class and outcome (hit or miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribune_cache_requests_total",
		Help: "Total cache lookups by key class and outcome",
	}, []string{"class", "outcome"})

	// EmailsSentTotal counts outbound emails by kind and outcome.
	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribune_emails_sent_total",
		Help: "Total outbound emails by kind and outcome",
	}, []string{"kind", "outcome"})

	// AuthAttemptsTotal counts authentication attempts by outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribune_auth_attempts_total",
		Help: "Total authentication attempts by outcome",
	}, []string{"outcome"})
)
