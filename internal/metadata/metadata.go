package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/layout"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

// ErrNoTag is returned by ReadID3 for files without an ID3v2 tag.
var ErrNoTag = errors.New("no ID3v2 tag")

// leadingTrack matches file names like "03 Title", "03 - Title" or "3. Title".
var leadingTrack = regexp.MustCompile(`^(\d{1,3})\s*(?:[-._]\s*)?\s(.+)$`)

// Extractor reads metadata records from media files.
type Extractor struct {
	retry filesystem.RetryConfig
}

// NewExtractor returns an Extractor using the default NFS retry policy.
func NewExtractor() *Extractor {
	return &Extractor{retry: filesystem.DefaultRetryConfig()}
}

// Extract returns the metadata record for path. Extraction is best effort:
// unreadable or untagged files get a record derived from the file name, and
// the returned error only describes why tags were not used.
func (e *Extractor) Extract(ctx context.Context, path string, ft mediatypes.FileType) (layout.Record, error) {
	start := time.Now()
	defer func() {
		metrics.MetadataExtractDuration.WithLabelValues(string(ft)).Observe(time.Since(start).Seconds())
	}()

	fallback := FromFilename(path, ft)
	if ft != mediatypes.FileTypeAudio || strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return fallback, nil
	}

	rec, err := e.ReadID3(ctx, path)
	if err != nil {
		if !errors.Is(err, ErrNoTag) {
			logging.Debug("ID3 read failed for %s: %v", path, err)
		}
		return fallback, err
	}
	// Tags win; the file name fills the gaps.
	for k, v := range fallback {
		if rec.Get(k) == "" {
			rec[k] = v
		}
	}
	return rec, nil
}

// ReadID3 parses the ID3v2 tag of an MP3 file.
func (e *Extractor) ReadID3(ctx context.Context, path string) (layout.Record, error) {
	f, err := filesystem.OpenWithRetry(ctx, path, e.retry)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tag, err := id3v2.ParseReader(f, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("parse id3 %s: %w", path, err)
	}

	if !tag.HasFrames() {
		return nil, ErrNoTag
	}

	rec := layout.Record{}
	set := func(key, value string) {
		if value = strings.TrimSpace(strings.Trim(value, "\x00")); value != "" {
			rec[key] = value
		}
	}

	set(layout.KeyTitle, tag.Title())
	set(layout.KeyArtist, tag.Artist())
	set(layout.KeyAlbum, tag.Album())
	set(layout.KeyGenre, cleanGenre(tag.Genre()))
	set(layout.KeyAlbumArtist, tag.GetTextFrame("TPE2").Text)
	set(layout.KeyTrackNumber, tag.GetTextFrame("TRCK").Text)

	if date := tag.GetTextFrame("TDRC").Text; date != "" {
		set(layout.KeyDate, date)
	} else if year := tag.GetTextFrame("TYER").Text; year != "" {
		set(layout.KeyYear, year)
	}

	for _, f := range tag.GetFrames(tag.CommonID("Comments")) {
		if c, ok := f.(id3v2.CommentFrame); ok && c.Text != "" {
			set(layout.KeyDescription, c.Text)
			break
		}
	}

	return rec, nil
}

// id3v1Genre matches genre references like "(17)" or "(17)Rock".
var id3v1Genre = regexp.MustCompile(`^\((\d+)\)(.*)$`)

// cleanGenre resolves numeric ID3v1 genre references when no text follows.
func cleanGenre(g string) string {
	g = strings.TrimSpace(g)
	m := id3v1Genre.FindStringSubmatch(g)
	if m == nil {
		return g
	}
	if rest := strings.TrimSpace(m[2]); rest != "" {
		return rest
	}
	n, _ := strconv.Atoi(m[1])
	if n >= 0 && n < len(id3v1Genres) {
		return id3v1Genres[n]
	}
	return g
}

// FromFilename derives a record from the file name alone: the title, and
// for audio a leading track number.
func FromFilename(path string, ft mediatypes.FileType) layout.Record {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	rec := layout.Record{}
	if ft == mediatypes.FileTypeAudio {
		if m := leadingTrack.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				rec[layout.KeyTrackNumber] = strconv.Itoa(n)
				name = strings.TrimSpace(m[2])
			}
		}
	}
	if name != "" {
		rec[layout.KeyTitle] = name
	}
	return rec
}

// First entries of the ID3v1 genre list.
var id3v1Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel", "Noise",
	"AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic", "Darkwave",
	"Techno-Industrial", "Electronic", "Pop-Folk", "Eurodance", "Dream",
	"Southern Rock", "Comedy", "Cult", "Gangsta", "Top 40", "Christian Rap",
	"Pop/Funk", "Jungle", "Native American", "Cabaret", "New Wave",
	"Psychadelic", "Rave", "Showtunes", "Trailer", "Lo-Fi", "Tribal",
	"Acid Punk", "Acid Jazz", "Polka", "Retro", "Musical", "Rock & Roll",
	"Hard Rock",
}
