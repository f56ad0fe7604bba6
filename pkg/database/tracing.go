package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/CloudGames/pkg/database"

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// QueryTracer implements pgx.QueryTracer. It opens a client span per query,
// observes the query duration and logs statements slower than the threshold.
type QueryTracer struct {
	tracer        trace.Tracer
	slowThreshold time.Duration
	logger        *slog.Logger
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// NewQueryTracer creates a tracer. A zero threshold or nil logger disables
// slow query logging.
func NewQueryTracer(slowThreshold time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{
		tracer:        otel.Tracer(tracerName),
		slowThreshold: slowThreshold,
		logger:        logger,
	}
}

// TraceQueryStart is called by pgx before a query is sent.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := operationName(data.SQL)
	ctx, _ = t.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", data.SQL),
		),
	)
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: time.Now()})
}

// TraceQueryEnd is called by pgx once the query has completed.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()

	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(qs.start)
	op := operationName(qs.sql)
	queryDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if t.slowThreshold <= 0 || t.logger == nil || elapsed < t.slowThreshold {
		return
	}
	attrs := []any{
		slog.String("operation", op),
		slog.String("statement", qs.sql),
		slog.Duration("duration", elapsed),
	}
	if data.Err != nil {
		attrs = append(attrs, slog.String("error", data.Err.Error()))
	}
	t.logger.WarnContext(ctx, "slow query detected", attrs...)
}

// operationName returns the leading SQL verb in lower case, e.g. "select".
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
