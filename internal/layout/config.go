package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Rule names, also used in the disabled list of the configuration file.
const (
	RuleAlbum    = "album"
	RuleArtist   = "artist"
	RuleGenre    = "genre"
	RuleTrack    = "track"
	RuleYear     = "year"
	RuleVideo    = "video"
	RuleImage    = "image"
	RulePlaylist = "playlist"
)

// Boxes holds the letters-per-bucket size for each alphabetic axis.
type Boxes struct {
	Album  int `toml:"album"`
	Artist int `toml:"artist"`
	Genre  int `toml:"genre"`
	Track  int `toml:"track"`
}

// Config controls bucket sizes, the divider and which rules run.
//
// Example file:
//
//	divider = "-"
//	skip_chars = "\"'("
//	disabled = ["year"]
//
//	[boxes]
//	album = 4
//	artist = 4
//	genre = 1
//	track = 4
type Config struct {
	Divider   string   `toml:"divider"`
	SkipChars string   `toml:"skip_chars"`
	Boxes     Boxes    `toml:"boxes"`
	Disabled  []string `toml:"disabled"`
}

// DefaultConfig returns the built-in layout configuration.
func DefaultConfig() Config {
	return Config{
		Divider:   "-",
		SkipChars: defaultSkipChars,
		Boxes: Boxes{
			Album:  4,
			Artist: 4,
			Genre:  1,
			Track:  4,
		},
	}
}

// LoadConfig reads a TOML layout file on top of DefaultConfig. An empty path
// or a missing file yields the defaults; the returned bool reports whether a
// file was read.
func LoadConfig(path string) (Config, bool, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, false, nil
		}
		return cfg, false, fmt.Errorf("open layout config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, false, fmt.Errorf("parse layout config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, true, nil
}

// Validate checks the divider, bucket sizes and rule names.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Divider) == "" {
		return errors.New("layout config: divider must not be empty")
	}
	if strings.ContainsRune(c.Divider, '/') {
		return errors.New("layout config: divider must not contain '/'")
	}
	for name, v := range map[string]int{
		RuleAlbum:  c.Boxes.Album,
		RuleArtist: c.Boxes.Artist,
		RuleGenre:  c.Boxes.Genre,
		RuleTrack:  c.Boxes.Track,
	} {
		if v < 0 {
			return fmt.Errorf("layout config: boxes.%s must be >= 0, got %d", name, v)
		}
	}
	for _, name := range c.Disabled {
		if !knownRule(name) {
			return fmt.Errorf("layout config: unknown rule %q in disabled", name)
		}
	}
	return nil
}

func (c Config) enabled(name string) bool {
	for _, d := range c.Disabled {
		if d == name {
			return false
		}
	}
	return true
}

// marker wraps a name in the divider: "Album" becomes "-Album-".
func (c Config) marker(name string) string {
	return c.Divider + name + c.Divider
}

func (c Config) all() string {
	return c.marker("all")
}

func (c Config) allAll() string {
	return c.Divider + c.marker("all") + c.Divider
}

func (c Config) bucket(value string, box int) string {
	return alphaBucket(value, box, c.Divider, c.SkipChars)
}

func (c Config) initial(value string) string {
	return initial(value, c.SkipChars)
}
