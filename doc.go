// Package main is the media-catalog server.
//
// The server imports a media directory into a virtual browsing tree: every
// audio file is filed under album, artist, genre, track and year
// containers, videos and images under their folders and dates, and
// playlists get containers holding the files they reference.
//
// # Application Lifecycle
//
//  1. Memory configuration from GOMEMLIMIT or MEMORY_LIMIT
//  2. Configuration from the environment (and a .env file when present)
//  3. Catalog lock and SQLite catalog
//  4. Layout rules from LAYOUT_CONFIG or the built-in defaults
//  5. Importer and indexer: an initial index in the background, then
//     periodic re-indexing and cheap top-level change polling
//  6. JSON API and, when enabled, the Prometheus listener
//  7. Graceful shutdown on SIGINT/SIGTERM: the HTTP server drains, the
//     indexer is cancelled (closing any open playlist session) and the
//     catalog lock is released
//
// See internal/startup for the environment variables.
package main
