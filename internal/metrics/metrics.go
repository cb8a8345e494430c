// Package metrics регистрирует счётчики prometheus для ключевых операций
// сервиса. Метрики отдаются на /metrics через promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts счётчик попыток входа с меткой результата:
	// success, invalid_credentials, locked, suspended, rate_limited, error.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoneauth_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// OtpIssued счётчик выданных одноразовых кодов по назначению.
	OtpIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoneauth_otp_issued_total",
		Help: "Issued one-time codes by purpose.",
	}, []string{"purpose"})

	// OtpVerifications счётчик проверок кодов с меткой результата:
	// consumed, rejected, exhausted.
	OtpVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoneauth_otp_verifications_total",
		Help: "One-time code verification outcomes.",
	}, []string{"result"})

	// RateLimitDenials счётчик отклонённых лимитером запросов по действию.
	RateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoneauth_rate_limit_denials_total",
		Help: "Requests denied by the rate limiter.",
	}, []string{"action"})

	// SessionsEvicted счётчик сессий, вытесненных по лимиту на пользователя.
	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phoneauth_sessions_evicted_total",
		Help: "Sessions evicted by the per-user concurrency cap.",
	})

	// LifecycleTransitions счётчик переходов статуса учётной записи.
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoneauth_lifecycle_transitions_total",
		Help: "Account status transitions.",
	}, []string{"transition"})
)
