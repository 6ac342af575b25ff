// Package services defines shared utilities consumed by the pipeline
// orchestrator, the identification engines, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, email IDs, and attachment names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run accounting (errored vs skipped vs review).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the system.
package services
