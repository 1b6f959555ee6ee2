// Package storyboard holds the segment model and persists project state in
// SQLite.
//
// A project owns an ordered list of segments produced by the director, the
// style and aspect-ratio selection, and the project-wide generation seed.
// The Store manages database connections, schema initialization, segment
// status transitions, and the daily generation quota counter. Status updates
// are single-row UPDATE statements keyed by segment id, so concurrent batch
// workers never clobber each other's sibling writes.
//
// Treat this package as the single source of truth for segment lifecycle
// semantics; new statuses or columns mean updating schema.go and bumping
// schemaVersion.
package storyboard
