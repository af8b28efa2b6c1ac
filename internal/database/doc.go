// Package database provides the SQLite catalog store.
//
// It holds three kinds of rows:
//   - objects: one per imported file, keyed by absolute path
//   - containers: the virtual tree built by the layout rules, rooted at
//     container 0 and unique per (parent, name)
//   - entries: placements of objects in containers with a display title
//
// ResolveContainerChain creates missing containers along a chain and is
// idempotent, so re-importing an item reuses the same containers. Entries
// remember the object whose import created them (origin), which lets an
// import replace its own entries and lets playlist entries disappear with
// the playlist.
//
// The database uses WAL mode with foreign keys enabled and creates its
// schema on open.
package database
