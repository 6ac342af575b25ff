// Package mailbox defines the email source contract and the immutable email
// and attachment types consumed by the identification pipeline.
//
// The Connector interface is the provider integration point. The bundled
// DirConnector reads .eml files from a drop directory so the pipeline runs end
// to end without provider credentials; hosted IMAP/Graph connectors implement
// the same interface externally.
package mailbox
