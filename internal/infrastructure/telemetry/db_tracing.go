package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database span instrumentation.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans; keep off in production
	SlowQueryThresh time.Duration
}

// DefaultDBTracingConfig returns the default database tracing configuration.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}
}

type dbTracingKey struct{}

// RegisterDBTracing attaches the otelgorm plugin plus callbacks that tag
// slow queries and mark failed statements on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	markStart := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, dbTracingKey{}, time.Now())
		}
	}
	inspect := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if db.Statement.RowsAffected >= 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if start, ok := ctx.Value(dbTracingKey{}).(time.Time); ok {
			if elapsed := time.Since(start); elapsed > cfg.SlowQueryThresh {
				span.SetAttributes(
					attribute.Bool("db.slow_query", true),
					attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
				)
			}
		}
	}

	registrations := []func() error{
		func() error {
			return db.Callback().Create().Before("gorm:create").Register("db_tracing:before_create", markStart)
		},
		func() error {
			return db.Callback().Create().After("gorm:create").Register("db_tracing:after_create", inspect)
		},
		func() error {
			return db.Callback().Query().Before("gorm:query").Register("db_tracing:before_query", markStart)
		},
		func() error {
			return db.Callback().Query().After("gorm:query").Register("db_tracing:after_query", inspect)
		},
		func() error {
			return db.Callback().Update().Before("gorm:update").Register("db_tracing:before_update", markStart)
		},
		func() error {
			return db.Callback().Update().After("gorm:update").Register("db_tracing:after_update", inspect)
		},
		func() error {
			return db.Callback().Delete().Before("gorm:delete").Register("db_tracing:before_delete", markStart)
		},
		func() error {
			return db.Callback().Delete().After("gorm:delete").Register("db_tracing:after_delete", inspect)
		},
		func() error {
			return db.Callback().Row().Before("gorm:row").Register("db_tracing:before_row", markStart)
		},
		func() error {
			return db.Callback().Row().After("gorm:row").Register("db_tracing:after_row", inspect)
		},
		func() error {
			return db.Callback().Raw().Before("gorm:raw").Register("db_tracing:before_raw", markStart)
		},
		func() error {
			return db.Callback().Raw().After("gorm:raw").Register("db_tracing:after_raw", inspect)
		},
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}
