// Package importer brings files from the media directory into the catalog.
//
// [Importer.ImportFromPath] imports one file: it extracts metadata, upserts
// the object and, when the file changed, rebuilds its layout entries through
// the layout builder. Playlists are run through the playlist driver after
// they are stored, so every line that names a media file becomes an entry
// of the playlist's container.
//
// [ObjectResolver] is what the playlist parser uses to turn a playlist line
// into an object. It looks the path up in the catalog and imports the file
// on a miss.
//
// [Indexer] runs full imports at startup, on a timer and whenever a cheap
// poll of the top-level directories notices a change. After each run it
// removes objects whose files disappeared and prunes containers left empty.
// Hidden files and directories (prefixed with '.') are skipped.
package importer
