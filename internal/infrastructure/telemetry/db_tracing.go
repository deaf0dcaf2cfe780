package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// DBTracing registers otelgorm plus slow-query and error annotation callbacks.
type DBTracing struct {
	logFullSQL      bool
	slowQueryThresh time.Duration
	logger          *zap.Logger
}

// NewDBTracing creates database tracing from the telemetry configuration
func NewDBTracing(cfg config.TelemetryConfig, logger *zap.Logger) *DBTracing {
	thresh := cfg.DBSlowQueryThresh
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	return &DBTracing{
		logFullSQL:      cfg.DBLogFullSQL,
		slowQueryThresh: thresh,
		logger:          logger,
	}
}

// Register installs the plugin and callbacks on db
func (t *DBTracing) Register(db *gorm.DB) error {
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !t.logFullSQL {
		// Bind values may hold customer phone numbers
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	registrations := []struct {
		before func() error
		after  func() error
	}{
		{
			func() error { return cb.Create().Before("gorm:create").Register("otel_timing:before_create", t.before) },
			func() error { return cb.Create().After("gorm:create").Register("otel_timing:after_create", t.after) },
		},
		{
			func() error { return cb.Query().Before("gorm:query").Register("otel_timing:before_query", t.before) },
			func() error { return cb.Query().After("gorm:query").Register("otel_timing:after_query", t.after) },
		},
		{
			func() error { return cb.Update().Before("gorm:update").Register("otel_timing:before_update", t.before) },
			func() error { return cb.Update().After("gorm:update").Register("otel_timing:after_update", t.after) },
		},
		{
			func() error { return cb.Row().Before("gorm:row").Register("otel_timing:before_row", t.before) },
			func() error { return cb.Row().After("gorm:row").Register("otel_timing:after_row", t.after) },
		},
	}
	for _, r := range registrations {
		if err := r.before(); err != nil {
			return err
		}
		if err := r.after(); err != nil {
			return err
		}
	}

	t.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", t.logFullSQL),
		zap.Duration("slow_query_threshold", t.slowQueryThresh),
	)
	return nil
}

func (t *DBTracing) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (t *DBTracing) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > t.slowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
