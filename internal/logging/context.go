package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTrackID is the standardized structured logging key for catalog track identifiers.
	FieldTrackID = "track_id"
	// FieldBatchID is the standardized structured logging key for undo batch identifiers.
	FieldBatchID = "batch_id"
)

type contextKey string

const (
	trackIDKey contextKey = "track_id"
	batchIDKey contextKey = "batch_id"
)

// WithTrackID stores a track identifier in the context for log enrichment.
func WithTrackID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, trackIDKey, id)
}

// WithBatchID stores an undo batch identifier in the context for log enrichment.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// TrackIDFromContext extracts a track identifier previously stored with WithTrackID.
func TrackIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(trackIDKey).(int64)
	return id, ok
}

// BatchIDFromContext extracts a batch identifier previously stored with WithBatchID.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(batchIDKey).(string)
	return id, ok
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := TrackIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldTrackID, id))
	}
	if id, ok := BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
