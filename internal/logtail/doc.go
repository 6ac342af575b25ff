// Package logtail reads trailing lines and incremental appends from the run
// log so the CLI can show recent activity without loading whole files.
//
// It keeps memory bounded with a ring buffer for "last N lines" reads and
// polls with a caller-supplied context for follow mode, restarting from the
// top when the file is rotated underneath it.
package logtail
