package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings so logs stay queryable.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldClientID  = "client_id"
	FieldLookupID  = "lookup_id"

	// Components
	FieldComponent = "component"
	FieldSymbol    = "symbol"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldURL       = "url"

	// Callsign analysis
	FieldCall      = "call"
	FieldADIF      = "adif"
	FieldEntity    = "entity"
	FieldPrefix    = "prefix"
	FieldMatchKind = "match_kind"
	FieldAt        = "at"

	// Dataset
	FieldDatasetDate = "dataset_date"
	FieldEntities    = "entities"
	FieldPrefixes    = "prefixes"
	FieldExceptions  = "exceptions"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldMismatches = "mismatches"

	// Status
	FieldStatus = "status"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// WithContext returns parent carrying the fields found in ctx. A nil
// parent means the global logger.
func WithContext(parent *zap.SugaredLogger, ctx context.Context) *zap.SugaredLogger {
	if parent == nil {
		parent = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return parent
	}
	return parent.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	store := snapshot.NewStore(logger.ComponentLogger("snapshot"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// WithSymbol tags a logger with one of the sym glyphs.
func WithSymbol(parent *zap.SugaredLogger, glyph string) *zap.SugaredLogger {
	return parent.With(FieldSymbol, glyph)
}
