// Package metrics defines and registers all custom Prometheus metrics for
// the ministry portal API. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Labels:
//   - result: "success", "failure", or "two_factor_required"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenRefreshTotal counts transparent access-token refreshes performed by
// the request gate.
// Label:
//   - result: "success" or "failure"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of access-token refresh attempts, by result.",
	},
	[]string{"result"},
)

// TwoFactorVerificationsTotal counts second-factor checks.
// Labels:
//   - method: "totp" or "backup_code"
//   - result: "success" or "failure"
var TwoFactorVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "two_factor_verifications_total",
		Help:      "Total number of two-factor verifications, by method and result.",
	},
	[]string{"method", "result"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// PermissionDeniedTotal counts RBAC denials.
// Label:
//   - resource: the resource the denied action targeted
var PermissionDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_denied_total",
		Help:      "Total number of requests denied by the RBAC evaluator.",
	},
	[]string{"resource"},
)

// RateLimitHitsTotal counts requests rejected by the rate limiter.
// Label:
//   - endpoint: the route path that was throttled
var RateLimitHitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_hits_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"endpoint"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// ActiveSessions tracks the current number of active sessions, updated by
// the session purge loop.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of active sessions in the registry.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts audit events dropped under backpressure.
// Audit recording is best-effort; drops indicate an undersized queue.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because the queue was full.",
	},
)
