package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	emailIDKey    contextKey = "email_id"
	attachmentKey contextKey = "attachment"
	componentKey  contextKey = "component"
)

// WithRunID annotates context with the processing run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEmailID annotates context with the email identifier being processed.
func WithEmailID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, emailIDKey, id)
}

// EmailIDFromContext extracts the email identifier if present.
func EmailIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(emailIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithAttachment annotates context with the attachment filename being processed.
func WithAttachment(ctx context.Context, filename string) context.Context {
	if filename == "" {
		return ctx
	}
	return context.WithValue(ctx, attachmentKey, filename)
}

// AttachmentFromContext extracts the attachment filename if present.
func AttachmentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(attachmentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithComponent annotates context with the component name doing the work.
func WithComponent(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, name)
}

// ComponentFromContext extracts the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
