package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// registration outcomes
const (
	OutcomeCreated  = "created"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// users
	PasswordHashDuration prometheus.Histogram
	RegistrationsTotal   *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "userreg",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "userreg",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "userreg",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "userreg",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "userreg",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		PasswordHashDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "userreg",
				Subsystem: "users",
				Name:      "password_hash_duration_seconds",
				Help:      "Time spent hashing passwords, including waiting for a hashing slot.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "userreg",
				Subsystem: "users",
				Name:      "registrations_total",
				Help:      "Create user outcomes.",
			},
			[]string{"outcome"}, // created|invalid|conflict|error
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.PasswordHashDuration, p.RegistrationsTotal)

	return p
}

// unmatchedRoute labels 404s and static files so paths never become labels
const unmatchedRoute = "unmatched"

// GinHandleMiddleware records request count, latency and in-flight gauge
// per route template.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := ctx.Request.Method

		inFlight := p.InFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		ctx.Next()

		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(ctx.Writer.Status()),
		}
		p.RequestsTotal.With(labels).Inc()
		p.RequestsDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// ObserveHash times fn and records it as a password hash. A nil *Prom
// only runs fn.
func (p *Prom) ObserveHash(fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	p.PasswordHashDuration.Observe(time.Since(start).Seconds())
	return err
}

func (p *Prom) IncRegistration(outcome string) {
	if p == nil {
		return
	}
	p.RegistrationsTotal.WithLabelValues(outcome).Inc()
}
