package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// ===== OPERATION LOGGING =====

// LogOperation records the outcome of one operation. Expected refusals are
// logged below error level so they do not page anyone.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, userID string, resourceID uint, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsValidation(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsPolicy(err):
			level = slog.LevelWarn
			status = "policy_violation"
		case IsUnauthorized(err):
			level = slog.LevelWarn
			status = "unauthorized"
		case IsNotFound(err):
			status = "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var policyErr *PolicyError
		var permErr *PermissionError
		var validationErrs ValidationErrors
		switch {
		case errors.As(err, &policyErr):
			attrs = append(attrs, slog.String("reason", string(policyErr.Reason)))
		case errors.As(err, &permErr):
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		case errors.As(err, &validationErrs):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErrs)))
		}

		if level == slog.LevelError {
			if pc, file, line, ok := runtime.Caller(2); ok {
				if fn := runtime.FuncForPC(pc); fn != nil {
					attrs = append(attrs,
						slog.String("caller_func", fn.Name()),
						slog.String("caller_file", file),
						slog.Int("caller_line", line),
					)
				}
			}
		}
	}

	if requestID, ok := ctx.Value("request_id").(string); ok {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogPermissionDenied(ctx context.Context, operation string, permError *PermissionError) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "Permission denied",
		slog.String("operation", operation),
		slog.String("user_id", permError.UserID),
		slog.Uint64("resource_id", uint64(permError.ResourceID)),
		slog.String("resource_type", permError.Resource),
		slog.String("action", permError.Action),
		slog.String("reason", permError.Reason),
	)
}

// LogTransition records an attempt state change.
func (l *ServiceLogger) LogTransition(ctx context.Context, attemptID uint, from, to string, attrs ...any) {
	args := append([]any{"attempt_id", attemptID, "from", from, "status", to}, attrs...)
	l.logger.InfoContext(ctx, "Attempt status changed", args...)
}

// ===== CONTEXTUAL LOGGER =====

// ContextualLogger wraps operations with automatic logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, userID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID uint, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, time.Since(cl.startTime), err)

	var permErr *PermissionError
	if errors.As(err, &permErr) {
		cl.logger.LogPermissionDenied(cl.ctx, cl.operation, permErr)
	}
}
