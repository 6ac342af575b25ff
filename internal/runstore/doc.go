// Package runstore persists processing-run results, the attachment dedup
// ledger, and the human-review queue in a SQLite database under the data
// directory. Run rows carry the reportable counts; per-email details and
// review items hang off the run id.
package runstore
