// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// AgentIDKey is the context key for the acting agent ID
	AgentIDKey contextKey = "agent_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and agent_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if agentID, ok := ctx.Value(AgentIDKey).(string); ok && agentID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("agent_id", agentID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// RoutingEvent logs a routing engine transition (assign, transfer, complete).
func (l *Logger) RoutingEvent(event, contactID, actor string) {
	l.Info("routing_event",
		slog.String("event", event),
		slog.String("contact_id", contactID),
		slog.String("actor", actor),
	)
}

// CallEvent logs a call lifecycle transition.
func (l *Logger) CallEvent(event, callID, status string) {
	l.Info("call_event",
		slog.String("event", event),
		slog.String("call_id", callID),
		slog.String("status", status),
	)
}

// SLAAlert logs an SLA alert being raised or cleared for a contact.
func (l *Logger) SLAAlert(contactID, kind string, raised bool) {
	l.Warn("sla_alert",
		slog.String("contact_id", contactID),
		slog.String("kind", kind),
		slog.Bool("raised", raised),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// WebhookDelivery logs the outcome of a webhook dispatch attempt.
func (l *Logger) WebhookDelivery(eventType, entityID string, attempt int, err error) {
	if err == nil {
		l.Info("webhook_delivered",
			slog.String("event_type", eventType),
			slog.String("entity_id", entityID),
			slog.Int("attempt", attempt),
		)
		return
	}
	l.Warn("webhook_delivery_failed",
		slog.String("event_type", eventType),
		slog.String("entity_id", entityID),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}
