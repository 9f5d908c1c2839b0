/*-------------------------------------------------------------------------
 *
 * log_context.go
 *    Log context helpers for structured logging
 *
 * Provides helpers for consistent structured logging with request_id,
 * user_id, project_id, and stage fields across all components.
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/metrics/log_context.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	projectIDKey contextKey = "project_id"
	stageKey     contextKey = "stage"
)

/* InitLogging configures the global logger. Format is "json" or "console". */
func InitLogging(level, format string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

/* WithRequestIDLogContext adds a request ID to log context */
func WithRequestIDLogContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

/* WithUserIDLogContext adds a user ID to log context */
func WithUserIDLogContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID.String())
}

/* WithProjectIDLogContext adds a project ID to log context */
func WithProjectIDLogContext(ctx context.Context, projectID uuid.UUID) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID.String())
}

/* WithStageLogContext adds a workflow stage name to log context */
func WithStageLogContext(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

/* LoggerFromContext creates a zerolog logger with fields from context */
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	logger := log.Logger

	if requestID := stringFromContext(ctx, requestIDKey); requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}
	if userID := stringFromContext(ctx, userIDKey); userID != "" {
		logger = logger.With().Str("user_id", userID).Logger()
	}
	if projectID := stringFromContext(ctx, projectIDKey); projectID != "" {
		logger = logger.With().Str("project_id", projectID).Logger()
	}
	if stage := stringFromContext(ctx, stageKey); stage != "" {
		logger = logger.With().Str("stage", stage).Logger()
	}

	return logger
}

/* LogWithContext logs a message with context fields */
func LogWithContext(ctx context.Context, level zerolog.Level, message string, fields map[string]interface{}) {
	logger := LoggerFromContext(ctx)
	event := logger.WithLevel(level)

	for key, value := range fields {
		event = event.Interface(key, value)
	}

	event.Msg(message)
}

/* DebugWithContext logs a debug message with context */
func DebugWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.DebugLevel, message, fields)
}

/* InfoWithContext logs an info message with context */
func InfoWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.InfoLevel, message, fields)
}

/* WarnWithContext logs a warning message with context */
func WarnWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.WarnLevel, message, fields)
}

/* ErrorWithContext logs an error message with context */
func ErrorWithContext(ctx context.Context, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogWithContext(ctx, zerolog.ErrorLevel, message, fields)
}
