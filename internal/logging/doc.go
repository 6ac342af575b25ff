// Package logging wraps log/slog with repository conventions: standardized
// field keys, typed attribute helpers, context-derived correlation fields, and
// construction from configuration (console or JSON, optional file tee).
package logging
