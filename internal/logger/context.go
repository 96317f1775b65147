package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// ctxFields - поля запроса, которые попадают в каждую запись лога.
// Хранятся одним значением, копируются при изменении.
type ctxFields struct {
	requestID string
	userID    string
	attrs     []any
}

func fieldsFrom(ctx context.Context) ctxFields {
	if f, ok := ctx.Value(ctxKey{}).(ctxFields); ok {
		return f
	}
	return ctxFields{}
}

func withFields(ctx context.Context, f ctxFields) context.Context {
	return context.WithValue(ctx, ctxKey{}, f)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	f := fieldsFrom(ctx)
	f.requestID = requestID
	return withFields(ctx, f)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	f := fieldsFrom(ctx)
	f.userID = userID
	return withFields(ctx, f)
}

// WithAttrs добавляет произвольные пары key/value (scope, project_id, worker...)
func WithAttrs(ctx context.Context, args ...any) context.Context {
	f := fieldsFrom(ctx)
	f.attrs = append(append([]any(nil), f.attrs...), args...)
	return withFields(ctx, f)
}

func GetRequestID(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

func GetUserID(ctx context.Context) string {
	return fieldsFrom(ctx).userID
}

// FromContext - глобальный логгер с полями запроса
func FromContext(ctx context.Context) *slog.Logger {
	l := GetLogger()
	f := fieldsFrom(ctx)

	args := make([]any, 0, 4+len(f.attrs))
	if f.requestID != "" {
		args = append(args, "request_id", f.requestID)
	}
	if f.userID != "" {
		args = append(args, "user_id", f.userID)
	}
	args = append(args, f.attrs...)

	if len(args) == 0 {
		return l
	}
	return l.With(args...)
}

func CtxDebug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// CtxWithError - CtxError с полем error
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	FromContext(ctx).Error(msg, append([]any{"error", err.Error()}, args...)...)
}
