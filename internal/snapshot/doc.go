// Package snapshot persists resource collections between simulator runs.
//
// Every resource kind is stored as one JSON document. Loading prefers the
// "current" snapshot written by an earlier Save and falls back to the
// default template when the current one is missing or unreadable. Default
// templates come from the storage directory (default_<kind>.json) and,
// failing that, from the templates compiled into the binary.
//
// Two backends implement Store:
//
//	FileStore    current_<kind>.json files next to the defaults
//	SQLiteStore  one row per kind in the snapshots table
//
// Writes are synchronous and best-effort; they are not crash-atomic.
package snapshot
