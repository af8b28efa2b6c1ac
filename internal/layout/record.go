package layout

import (
	"strings"
	"time"
)

// Well-known metadata keys.
const (
	KeyTitle       = "dc:title"
	KeyArtist      = "upnp:artist"
	KeyAlbum       = "upnp:album"
	KeyAlbumArtist = "upnp:albumArtist"
	KeyDate        = "dc:date"
	KeyYear        = "upnp:date"
	KeyGenre       = "upnp:genre"
	KeyDescription = "dc:description"
	KeyTrackNumber = "upnp:originalTrackNumber"
)

// Record holds the metadata of one media item. Absent keys read as "".
type Record map[string]string

// Get returns the trimmed value for key, or "" when the key is absent.
// It is safe to call on a nil Record.
func (r Record) Get(key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r[key])
}

// Clone returns a copy of the record. Rules work on clones so the caller's
// record is never modified.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Kind is the media category an item is filed under.
type Kind string

const (
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindImage    Kind = "image"
	KindPlaylist Kind = "playlist"
)

// Item is the input to the layout rules.
type Item struct {
	Kind Kind
	// Title is used when the record carries no dc:title, usually the file
	// name without extension.
	Title string
	// Dirs are the directory components between the media root and the
	// item's parent directory.
	Dirs    []string
	ModTime time.Time
	Meta    Record
}

// DisplayTitle returns the record title, falling back to Item.Title.
func (it Item) DisplayTitle() string {
	if t := it.Meta.Get(KeyTitle); t != "" {
		return t
	}
	return strings.TrimSpace(it.Title)
}

// Chain is an ordered list of container names from the catalog root to a
// leaf container. The empty chain is the root itself.
type Chain []string

// String joins the chain with "/" for logging.
func (c Chain) String() string {
	return strings.Join(c, "/")
}

// Placement is one location an item is filed under, before container ids
// are known.
type Placement struct {
	Rule  string
	Chain Chain
	Title string
	// Meta is owned by this placement.
	Meta Record
}

// Entry is a placement whose chain has been resolved to a container id.
type Entry struct {
	ContainerID int64
	Chain       Chain
	Title       string
	Meta        Record
}
