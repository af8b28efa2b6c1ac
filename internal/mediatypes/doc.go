// Package mediatypes maps file extensions to catalog file types and MIME
// types. It has no dependencies so every other package can import it.
//
//	mediatypes.FileTypeOf("/media/Music/song.MP3") // FileTypeAudio
//	mediatypes.GetMimeType(".m3u")                 // "audio/x-mpegurl"
//
// Playlists are limited to the formats the built-in playlist parser reads
// (M3U, M3U8 and PLS).
package mediatypes
