package http

import (
	"context"
	"log/slog"

	"github.com/viralforge/webauth/internal/application"
)

const serviceName = "webauth"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// requestFields are attached to every adapter log line. Session ids and
// tokens are never included; the caller is identified by user id only.
func requestFields(ctx context.Context) []any {
	return append([]any{"request_id", requestIDFromContext(ctx)}, identityFields(identityFromContext(ctx))...)
}

func identityFields(identity application.Identity) []any {
	if !identity.Authenticated {
		return nil
	}
	return []any{"user_id", identity.User.ID.String(), "auth_source", identity.Source}
}

func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := append([]any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
	}, requestFields(ctx)...)
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	switch {
	case statusCode >= 500:
		httpLogger().ErrorContext(ctx, "http operation failed", fields...)
	case statusCode == 401 || statusCode == 403:
		// credential failures are expected traffic
		httpLogger().InfoContext(ctx, "http operation rejected", fields...)
	default:
		httpLogger().WarnContext(ctx, "http operation failed", fields...)
	}
}
