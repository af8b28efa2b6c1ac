package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule derives placements for one item. Rules are pure: the same item and
// configuration always produce the same placements in the same order.
type Rule interface {
	Apply(item Item) []Placement
}

// descriptor binds a rule name to the kind of item it handles. The table
// below fixes the evaluation order.
type descriptor struct {
	name  string
	kind  Kind
	build func(Config) Rule
}

var descriptors = []descriptor{
	{RuleAlbum, KindAudio, func(c Config) Rule { return albumRule{c} }},
	{RuleArtist, KindAudio, func(c Config) Rule { return artistRule{c} }},
	{RuleGenre, KindAudio, func(c Config) Rule { return genreRule{c} }},
	{RuleTrack, KindAudio, func(c Config) Rule { return trackRule{c} }},
	{RuleYear, KindAudio, func(c Config) Rule { return yearRule{c} }},
	{RuleVideo, KindVideo, func(c Config) Rule { return videoRule{c} }},
	{RuleImage, KindImage, func(c Config) Rule { return imageRule{c} }},
}

func knownRule(name string) bool {
	if name == RulePlaylist {
		return true
	}
	for _, d := range descriptors {
		if d.name == name {
			return true
		}
	}
	return false
}

const unknown = "Unknown"

// audioFacts is the normalized view of an audio record shared by all audio
// rules. Missing values are replaced by "Unknown"; the has* flags record
// which values were really present so titles can leave them out.
type audioFacts struct {
	title       string
	trackTitle  string
	artist      string
	hasArtist   bool
	album       string
	hasAlbum    bool
	albumArtist string
	genre       string
	year        string
	hasYear     bool
	decade      string
	meta        Record
}

func newAudioFacts(item Item) audioFacts {
	m := item.Meta
	f := audioFacts{
		title:  item.DisplayTitle(),
		artist: m.Get(KeyArtist),
		album:  m.Get(KeyAlbum),
		genre:  m.Get(KeyGenre),
	}
	if f.title == "" {
		f.title = unknown
	}

	f.hasArtist = f.artist != ""
	if !f.hasArtist {
		f.artist = unknown
	}
	f.hasAlbum = f.album != ""
	if !f.hasAlbum {
		f.album = unknown
	}
	if f.genre == "" {
		f.genre = unknown
	}

	date := m.Get(KeyDate)
	if date == "" {
		date = m.Get(KeyYear)
	}
	f.year, f.hasYear = Year(date)
	if !f.hasYear {
		f.year = unknown
	}
	f.decade = DecadeBucket(date)

	owner := f.artist
	if aa := m.Get(KeyAlbumArtist); aa != "" {
		owner = aa
	}
	if isCompilation(m) {
		owner = "Various"
	}
	f.albumArtist = f.album + " - " + owner

	f.trackTitle = trackPrefix(m.Get(KeyTrackNumber)) + f.title

	f.meta = m.Clone()
	f.meta[KeyTitle] = f.title
	if f.hasYear {
		f.meta[KeyYear] = f.year
	}
	return f
}

func isCompilation(m Record) bool {
	if strings.EqualFold(m.Get(KeyDescription), "various") {
		return true
	}
	switch strings.ToLower(m.Get(KeyAlbumArtist)) {
	case "various", "various artists":
		return true
	}
	return false
}

// trackPrefix turns "3" or "3/12" into "03 ". Anything else is dropped.
func trackPrefix(track string) string {
	if i := strings.IndexByte(track, '/'); i >= 0 {
		track = track[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(track))
	if err != nil || n <= 0 {
		return ""
	}
	return fmt.Sprintf("%02d ", n)
}

// withArtist is "Title - Artist", or just the title without an artist.
func (f audioFacts) withArtist() string {
	if !f.hasArtist {
		return f.title
	}
	return f.title + " - " + f.artist
}

// context is " (Album, 2018)" built from whichever parts are known.
func (f audioFacts) context() string {
	var parts []string
	if f.hasAlbum {
		parts = append(parts, f.album)
	}
	if f.hasYear {
		parts = append(parts, f.year)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func (f audioFacts) albumYear() string {
	if !f.hasYear {
		return f.album
	}
	return f.album + " (" + f.year + ")"
}

func (f audioFacts) place(rule string, title string, chain ...string) Placement {
	return Placement{Rule: rule, Chain: chain, Title: title, Meta: f.meta.Clone()}
}

// albumRule files the item under its album, bucketed by the album name.
// Missing album and artist become "Unknown".
type albumRule struct{ cfg Config }

func (r albumRule) Apply(item Item) []Placement {
	f := newAudioFacts(item)
	c := r.cfg
	root := c.marker("Album")
	box := c.bucket(f.album, c.Boxes.Album)
	return []Placement{
		f.place(RuleAlbum, f.trackTitle, root, box, c.initial(f.album), f.albumArtist),
		f.place(RuleAlbum, f.trackTitle, root, box, c.all(), f.albumArtist),
		f.place(RuleAlbum, f.trackTitle, root, c.allAll(), f.albumArtist),
	}
}

// artistRule files the item under its artist. Titles outside the album
// container carry album and year. A missing artist becomes "Unknown".
type artistRule struct{ cfg Config }

func (r artistRule) Apply(item Item) []Placement {
	f := newAudioFacts(item)
	c := r.cfg
	root := c.marker("Artist")
	box := c.bucket(f.artist, c.Boxes.Artist)
	initial := c.initial(f.artist)
	long := f.title + f.context()
	return []Placement{
		f.place(RuleArtist, long, root, c.allAll(), f.artist),
		f.place(RuleArtist, long, root, box, c.all(), f.artist),
		f.place(RuleArtist, long, root, box, initial, f.artist, c.all()),
		f.place(RuleArtist, f.trackTitle, root, box, initial, f.artist, f.albumYear()),
	}
}

// genreRule files the item under its genre, with a sub-bucket on the
// artist. A missing genre becomes "Unknown"; a missing artist is left out of
// the title.
type genreRule struct{ cfg Config }

func (r genreRule) Apply(item Item) []Placement {
	f := newAudioFacts(item)
	c := r.cfg
	root := c.marker("Genre")
	title := f.withArtist()
	return []Placement{
		f.place(RuleGenre, title, root, f.genre, c.allAll()),
		f.place(RuleGenre, title, root, f.genre, c.bucket(f.artist, c.Boxes.Genre), f.albumArtist),
	}
}

// trackRule is the flat listing by title.
type trackRule struct{ cfg Config }

func (r trackRule) Apply(item Item) []Placement {
	f := newAudioFacts(item)
	c := r.cfg
	root := c.marker("Track")
	return []Placement{
		f.place(RuleTrack, f.withArtist()+f.context(), root, c.bucket(f.title, c.Boxes.Track), c.initial(f.title)),
		f.place(RuleTrack, f.withArtist(), root, c.allAll()),
	}
}

// yearRule groups by decade and year. Undated items go to the unknown
// decade and the "Unknown" year.
type yearRule struct{ cfg Config }

func (r yearRule) Apply(item Item) []Placement {
	f := newAudioFacts(item)
	c := r.cfg
	root := c.marker("Year")
	return []Placement{
		f.place(RuleYear, f.withArtist(), root, f.decade, c.all()),
		f.place(RuleYear, f.withArtist(), root, f.decade, f.year, c.all()),
		f.place(RuleYear, f.trackTitle, root, f.decade, f.year, f.artist, f.album),
	}
}

type videoRule struct{ cfg Config }

func (r videoRule) Apply(item Item) []Placement {
	title := titleOrUnknown(item)
	meta := item.Meta.Clone()
	out := []Placement{{Rule: RuleVideo, Chain: Chain{"Video", "All Video"}, Title: title, Meta: meta.Clone()}}
	if dirs := cleanDirs(item.Dirs); len(dirs) > 0 {
		out = append(out, Placement{
			Rule:  RuleVideo,
			Chain: append(Chain{"Video", "Directories"}, dirs...),
			Title: title,
			Meta:  meta.Clone(),
		})
	}
	return out
}

// imageRule files photos by date taken (or modification time) and folder.
type imageRule struct{ cfg Config }

func (r imageRule) Apply(item Item) []Placement {
	title := titleOrUnknown(item)
	meta := item.Meta.Clone()
	out := []Placement{{Rule: RuleImage, Chain: Chain{"Photos", "All Photos"}, Title: title, Meta: meta.Clone()}}

	if year, month, ok := photoDate(item); ok {
		out = append(out, Placement{
			Rule:  RuleImage,
			Chain: Chain{"Photos", "Date", year, month},
			Title: title,
			Meta:  meta.Clone(),
		})
	}
	if dirs := cleanDirs(item.Dirs); len(dirs) > 0 {
		out = append(out, Placement{
			Rule:  RuleImage,
			Chain: append(Chain{"Photos", "Directories"}, dirs...),
			Title: title,
			Meta:  meta.Clone(),
		})
	}
	return out
}

func photoDate(item Item) (string, string, bool) {
	date := item.Meta.Get(KeyDate)
	if y, ok := Year(date); ok && len(date) >= 7 && date[4] == '-' {
		if m, err := strconv.Atoi(date[5:7]); err == nil && m >= 1 && m <= 12 {
			return y, fmt.Sprintf("%02d", m), true
		}
	}
	if item.ModTime.IsZero() {
		return "", "", false
	}
	return item.ModTime.Format("2006"), item.ModTime.Format("01"), true
}

func titleOrUnknown(item Item) string {
	if t := item.DisplayTitle(); t != "" {
		return t
	}
	return unknown
}

func cleanDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" && d != "." {
			out = append(out, d)
		}
	}
	return out
}
