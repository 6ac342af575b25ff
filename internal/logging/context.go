package logging

import (
	"context"
	"log/slog"

	"pigeonhole/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for processing run identifiers.
	FieldRunID = "run_id"
	// FieldEmailID is the standardized structured logging key for email identifiers.
	FieldEmailID = "email_id"
	// FieldAttachment is the standardized structured logging key for attachment filenames.
	FieldAttachment = "attachment"
	// FieldMailbox is the standardized structured logging key for mailbox identifiers.
	FieldMailbox = "mailbox"
	// FieldAsset is the standardized structured logging key for asset identifiers.
	FieldAsset = "asset_id"
	// FieldConfidence is the standardized structured logging key for match confidence.
	FieldConfidence = "confidence"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.EmailIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEmailID, id))
	}
	if name, ok := services.AttachmentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAttachment, name))
	}
	if name, ok := services.ComponentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldComponent, name))
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
	return logger.With(attrsToArgs(fields)...)
}
