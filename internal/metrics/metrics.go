// Package metrics は Prometheus のメトリクスと収集用ミドルウェアを提供します。
package metrics

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証イベント名
const (
	EventLoginSucceeded = "login_succeeded"
	EventLoginFailed    = "login_failed"
	EventLoginLocked    = "login_locked"
	EventSignup         = "signup"
	EventSignupRejected = "signup_rejected"
	EventLogout         = "logout"
	EventUnauthorized   = "unauthenticated"
	EventForbidden      = "forbidden"
	EventCSRFRejected   = "csrf_rejected"
)

// 投稿操作名
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_auth_events_total",
			Help: "Total number of authentication and authorization events",
		},
		[]string{"event"},
	)

	PostMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_post_mutations_total",
			Help: "Total number of committed post mutations",
		},
		[]string{"op"},
	)
)

// AuthEvent は認証イベントを1件記録します。
func AuthEvent(event string) {
	AuthEventsTotal.WithLabelValues(event).Inc()
}

// PostMutation は投稿の変更を1件記録します。
func PostMutation(op string) {
	PostMutationsTotal.WithLabelValues(op).Inc()
}

// Middleware はリクエスト数と処理時間を記録します。
// ラベルには実パスではなくルート定義（/:id/edit など）を使います。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		statusClass := fmt.Sprintf("%dxx", c.Writer.Status()/100)

		HTTPRequestsTotal.WithLabelValues(method, route, statusClass).Inc()
		HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler は /metrics 用のハンドラーを返します。
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
