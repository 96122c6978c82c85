package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// AssistantIDKey is the context key for the active assistant
	AssistantIDKey ContextKey = "assistant_id"
	// ThreadIDKey is the context key for the active thread
	ThreadIDKey ContextKey = "thread_id"
)

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithAssistantID adds an assistant ID to the context
func WithAssistantID(ctx context.Context, assistantID string) context.Context {
	return context.WithValue(ctx, AssistantIDKey, assistantID)
}

// WithThreadID adds a thread ID to the context
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, ThreadIDKey, threadID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetAssistantID retrieves the assistant ID from the context
func GetAssistantID(ctx context.Context) string {
	return stringValue(ctx, AssistantIDKey)
}

// GetThreadID retrieves the thread ID from the context
func GetThreadID(ctx context.Context) string {
	return stringValue(ctx, ThreadIDKey)
}

// NewTurnContext starts a trace for one user message on a thread
func NewTurnContext(ctx context.Context, assistantID, threadID string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	ctx = WithAssistantID(ctx, assistantID)
	return WithThreadID(ctx, threadID)
}

// LoggerFromContext adds the tracing ids found in ctx to the logger
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	fields := logger.With()
	if v := GetTraceID(ctx); v != "" {
		fields = fields.Str("trace_id", v)
	}
	if v := GetAssistantID(ctx); v != "" {
		fields = fields.Str("assistant_id", v)
	}
	if v := GetThreadID(ctx); v != "" {
		fields = fields.Str("thread_id", v)
	}
	return fields.Logger()
}

func stringValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
