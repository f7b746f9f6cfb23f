package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQueryThreshold = 250 * time.Millisecond

// zapGormLogger routes GORM's output through zap so SQL lands in the same
// stream as the rest of the service
type zapGormLogger struct {
	log          *zap.Logger
	level        gormlogger.LogLevel
	slowAfter    time.Duration
	skipNotFound bool
}

// GormLoggerOption adjusts a logger built by NewGormLogger
type GormLoggerOption func(*zapGormLogger)

// WithSlowThreshold overrides the slow query threshold; zero disables slow
// query warnings
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *zapGormLogger) {
		l.slowAfter = d
	}
}

// WithRecordNotFoundLogging re-enables logging of record-not-found errors,
// which are suppressed by default since lookups legitimately miss
func WithRecordNotFoundLogging() GormLoggerOption {
	return func(l *zapGormLogger) {
		l.skipNotFound = false
	}
}

// NewGormLogger adapts zap to GORM's logger interface
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) gormlogger.Interface {
	l := &zapGormLogger{
		log:          log.Named("gorm"),
		level:        level,
		slowAfter:    defaultSlowQueryThreshold,
		skipNotFound: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *zapGormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs a finished query at a level derived from its outcome: failed
// queries as errors, queries over the slow threshold as warnings, everything
// else as debug when the level allows it.
func (l *zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if reqID := GetRequestID(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if l.skipNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		l.log.Error("query failed", append(fields, zap.Error(err))...)

	case l.slowAfter > 0 && elapsed >= l.slowAfter && l.level >= gormlogger.Warn:
		l.log.Warn("slow query", append(fields, zap.Duration("threshold", l.slowAfter))...)

	case l.level >= gormlogger.Info:
		l.log.Debug("query", fields...)
	}
}

// MapGormLogLevel translates the service log level into GORM's
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn", "warning":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
