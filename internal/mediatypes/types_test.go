package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		ext  string
		want FileType
	}{
		{".mp3", FileTypeAudio},
		{".flac", FileTypeAudio},
		{".jpg", FileTypeImage},
		{".webp", FileTypeImage},
		{".mp4", FileTypeVideo},
		{".webm", FileTypeVideo},
		{".m3u", FileTypePlaylist},
		{".m3u8", FileTypePlaylist},
		{".pls", FileTypePlaylist},
		{".wpl", FileTypeOther},
		{".xyz", FileTypeOther},
		{"", FileTypeOther},
		{".MP3", FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := GetFileType(tt.ext); got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestFileTypeOf(t *testing.T) {
	tests := map[string]FileType{
		"/media/Music/Song.MP3":  FileTypeAudio,
		"/media/Lists/mix.M3U":   FileTypePlaylist,
		"holiday.JPEG":           FileTypeImage,
		"/media/notes.txt":       FileTypeOther,
		"/media/no-extension":    FileTypeOther,
		"/media/dir.mp3/file.db": FileTypeOther,
	}
	for path, want := range tests {
		if got := FileTypeOf(path); got != want {
			t.Errorf("FileTypeOf(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := map[string]string{
		".mp3":  "audio/mpeg",
		".jpg":  "image/jpeg",
		".mkv":  "video/x-matroska",
		".m3u":  "audio/x-mpegurl",
		".pls":  "audio/x-scpls",
		".nope": "application/octet-stream",
	}
	for ext, want := range tests {
		if got := GetMimeType(ext); got != want {
			t.Errorf("GetMimeType(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestEveryExtensionHasMimeType(t *testing.T) {
	for _, set := range []map[string]bool{AudioExtensions, ImageExtensions, VideoExtensions, PlaylistExtensions} {
		for ext := range set {
			if _, ok := MimeTypes[ext]; !ok {
				t.Errorf("extension %s has no MIME type", ext)
			}
		}
	}
}

func TestExtensionSetsDisjoint(t *testing.T) {
	seen := map[string]string{}
	sets := map[string]map[string]bool{
		"audio": AudioExtensions, "image": ImageExtensions,
		"video": VideoExtensions, "playlist": PlaylistExtensions,
	}
	for name, set := range sets {
		for ext := range set {
			if other, ok := seen[ext]; ok {
				t.Errorf("extension %s in both %s and %s", ext, other, name)
			}
			seen[ext] = name
		}
	}
}

func TestIsMediaFile(t *testing.T) {
	if !IsMediaFile(".ogg") || !IsMediaFile(".pls") {
		t.Error("expected .ogg and .pls to be media files")
	}
	if IsMediaFile(".txt") {
		t.Error(".txt is not a media file")
	}
}
