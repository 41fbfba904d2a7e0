package observability

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times a logical store operation and counts its failures by
// class. A nil *Prom only runs fn.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	if err != nil {
		p.DbErrorsTotal.WithLabelValues(op, ClassifyDBErr(err)).Inc()
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(elapsed)
		return err
	}

	p.DbQueryDuration.WithLabelValues(op, "ok").Observe(elapsed)
	return nil
}

var sqlStateNames = map[string]string{
	"23505": "unique_violation",
	"23514": "check_violation",
	"23502": "not_null_violation",
	"57014": "query_canceled",
	"53300": "too_many_connections",
}

// sqlstate classes, see the Postgres errcodes appendix
var sqlStateClasses = map[string]string{
	"08": "connection",
	"40": "transaction_rollback",
	"42": "syntax_or_access",
	"53": "insufficient_resources",
}

// ClassifyDBErr maps err to a low-cardinality label.
func ClassifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if name, ok := sqlStateNames[pgErr.Code]; ok {
			return name
		}
		if len(pgErr.Code) >= 2 {
			if class, ok := sqlStateClasses[pgErr.Code[:2]]; ok {
				return class
			}
		}
		return "pg_" + pgErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "connection"
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return "connection"
	}

	return "unknown"
}
