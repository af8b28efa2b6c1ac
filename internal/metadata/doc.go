// Package metadata builds layout records from media files. MP3 files are
// read with github.com/bogem/id3v2; every other format, and any MP3 whose
// tag cannot be read, gets a record derived from its file name.
package metadata
