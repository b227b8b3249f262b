package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	ProjectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "projects_created_total",
			Help: "Total number of projects created",
		},
	)

	TasksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	TaskCompletionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_completion_toggles_total",
			Help: "Total number of task completion updates",
		},
		[]string{"completed"},
	)

	MemberInvites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "member_invites_total",
			Help: "Member invitations by outcome",
		},
		[]string{"outcome"}, // outcome: invited, user_not_found, already_member, denied
	)

	PermissionDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_denials_total",
			Help: "Requests rejected by the role permission table",
		},
		[]string{"permission"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events by publish result",
		},
		[]string{"routing_key", "status"}, // status: sent, failed, skipped
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation string) {
	SlowQueryCount.WithLabelValues(operation).Inc()
}

func IncrementMemberInvite(outcome string) {
	MemberInvites.WithLabelValues(outcome).Inc()
}

func IncrementPermissionDenied(permission string) {
	PermissionDenials.WithLabelValues(permission).Inc()
}

func IncrementOutboxPublished(routingKey, status string) {
	OutboxPublished.WithLabelValues(routingKey, status).Inc()
}

func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
