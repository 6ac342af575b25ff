// Package pipeline orchestrates mailbox processing runs.
//
// A run lists emails from the connector, splits them into fixed-size batches,
// and fans out over two nested worker bounds: emails within a batch and
// attachments within an email. Each attachment flows through download,
// duplicate detection, identification, and classification, with every failure
// isolated to the attachment that caused it. A file lock serializes
// orchestrators sharing one data directory.
package pipeline
