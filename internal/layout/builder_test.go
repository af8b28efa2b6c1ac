package layout

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func audioItem() Item {
	return Item{
		Kind:  KindAudio,
		Title: "audio_title",
		Meta: Record{
			KeyTitle:       "Audio Title",
			KeyArtist:      "Artist",
			KeyAlbum:       "Album",
			KeyDate:        "2018-01-01",
			KeyGenre:       "Genre",
			KeyDescription: "Description",
		},
	}
}

func TestLayoutAudioStructure(t *testing.T) {
	b := NewBuilder(DefaultConfig())

	want := []struct {
		chain []string
		title string
	}{
		{[]string{"-Album-", "-ABCD-", "A", "Album - Artist"}, "Audio Title"},
		{[]string{"-Album-", "-ABCD-", "-all-", "Album - Artist"}, "Audio Title"},
		{[]string{"-Album-", "--all--", "Album - Artist"}, "Audio Title"},
		{[]string{"-Artist-", "--all--", "Artist"}, "Audio Title (Album, 2018)"},
		{[]string{"-Artist-", "-ABCD-", "-all-", "Artist"}, "Audio Title (Album, 2018)"},
		{[]string{"-Artist-", "-ABCD-", "A", "Artist", "-all-"}, "Audio Title (Album, 2018)"},
		{[]string{"-Artist-", "-ABCD-", "A", "Artist", "Album (2018)"}, "Audio Title"},
		{[]string{"-Genre-", "Genre", "--all--"}, "Audio Title - Artist"},
		{[]string{"-Genre-", "Genre", "-A-", "Album - Artist"}, "Audio Title - Artist"},
		{[]string{"-Track-", "-ABCD-", "A"}, "Audio Title - Artist (Album, 2018)"},
		{[]string{"-Track-", "--all--"}, "Audio Title - Artist"},
		{[]string{"-Year-", "2010 - 2019", "-all-"}, "Audio Title - Artist"},
		{[]string{"-Year-", "2010 - 2019", "2018", "-all-"}, "Audio Title - Artist"},
		{[]string{"-Year-", "2010 - 2019", "2018", "Artist", "Album"}, "Audio Title"},
	}

	got := b.Layout(audioItem())
	if len(got) != len(want) {
		for _, p := range got {
			t.Logf("%s => %s", p.Chain, p.Title)
		}
		t.Fatalf("Layout() returned %d placements, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !reflect.DeepEqual([]string(got[i].Chain), w.chain) {
			t.Errorf("placement %d chain = %q, want %q", i, got[i].Chain, w.chain)
		}
		if got[i].Title != w.title {
			t.Errorf("placement %d title = %q, want %q", i, got[i].Title, w.title)
		}
	}

	meta := got[0].Meta
	if meta.Get(KeyYear) != "2018" {
		t.Errorf("snapshot %s = %q, want 2018", KeyYear, meta.Get(KeyYear))
	}
	if meta.Get(KeyDescription) != "Description" {
		t.Errorf("snapshot %s = %q", KeyDescription, meta.Get(KeyDescription))
	}
}

func TestLayoutDoesNotModifyInput(t *testing.T) {
	item := audioItem()
	NewBuilder(DefaultConfig()).Layout(item)
	if _, ok := item.Meta[KeyYear]; ok {
		t.Error("Layout() wrote into the caller's record")
	}
}

func TestLayoutPlacementsOwnTheirMeta(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	items := []Item{
		audioItem(),
		{Kind: KindVideo, Title: "clip", Dirs: []string{"Movies"}},
		{Kind: KindImage, Title: "beach", Dirs: []string{"Trips"}, ModTime: time.Date(2019, 7, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, item := range items {
		placements := b.Layout(item)
		if len(placements) < 2 {
			t.Fatalf("%s: Layout() returned %d placements", item.Kind, len(placements))
		}
		placements[0].Meta["x-edited"] = "yes"
		for i, p := range placements[1:] {
			if _, ok := p.Meta["x-edited"]; ok {
				t.Errorf("%s: placement %d shares Meta with placement 0", item.Kind, i+1)
			}
		}
	}
}

func TestLayoutDeterministic(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	first := b.Layout(audioItem())
	second := b.Layout(audioItem())
	if !reflect.DeepEqual(first, second) {
		t.Error("Layout() is not deterministic for the same record")
	}
}

func TestLayoutMissingValues(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	item := Item{Kind: KindAudio, Meta: Record{KeyTitle: "Song"}}

	byChain := map[string]string{}
	for _, p := range b.Layout(item) {
		for _, seg := range p.Chain {
			if seg == "" {
				t.Fatalf("empty segment in chain %q", p.Chain)
			}
		}
		byChain[p.Chain.String()] = p.Title
	}

	tests := []struct {
		chain string
		title string
	}{
		{"-Album-/-UVWX-/U/Unknown - Unknown", "Song"},
		{"-Artist-/--all--/Unknown", "Song"},
		{"-Genre-/Unknown/--all--", "Song"},
		{"-Track-/-QRST-/S", "Song"},
		{"-Year-/-Unknown-/-all-", "Song"},
		{"-Year-/-Unknown-/Unknown/-all-", "Song"},
		{"-Year-/-Unknown-/Unknown/Unknown/Unknown", "Song"},
	}
	for _, tt := range tests {
		title, ok := byChain[tt.chain]
		if !ok {
			t.Errorf("missing chain %s", tt.chain)
			continue
		}
		if title != tt.title {
			t.Errorf("chain %s title = %q, want %q", tt.chain, title, tt.title)
		}
	}
}

func TestLayoutFallsBackToItemTitle(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	got := b.Layout(Item{Kind: KindAudio, Title: "from file"})
	if got[0].Title != "from file" {
		t.Errorf("title = %q, want %q", got[0].Title, "from file")
	}
}

func TestLayoutTrackNumberAndCompilation(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	item := audioItem()
	item.Meta[KeyTrackNumber] = "3/12"
	item.Meta[KeyDescription] = "VARIOUS"

	got := b.Layout(item)
	if got[0].Title != "03 Audio Title" {
		t.Errorf("album title = %q, want %q", got[0].Title, "03 Audio Title")
	}
	if last := got[0].Chain[len(got[0].Chain)-1]; last != "Album - Various" {
		t.Errorf("album leaf = %q, want %q", last, "Album - Various")
	}
	// Titles outside album containers carry no track number.
	if got[3].Title != "Audio Title (Album, 2018)" {
		t.Errorf("artist title = %q", got[3].Title)
	}
}

func TestLayoutDisabledRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Disabled = []string{RuleYear, RuleTrack}
	b := NewBuilder(cfg)

	if got := strings.Join(b.Rules(), ","); got != "album,artist,genre,video,image" {
		t.Errorf("Rules() = %s", got)
	}
	for _, p := range b.Layout(audioItem()) {
		if p.Rule == RuleYear || p.Rule == RuleTrack {
			t.Errorf("disabled rule %s produced %s", p.Rule, p.Chain)
		}
	}
}

func TestLayoutVideoAndImage(t *testing.T) {
	b := NewBuilder(DefaultConfig())

	video := b.Layout(Item{Kind: KindVideo, Title: "clip", Dirs: []string{"Movies", "", "2020"}})
	wantVideo := []Chain{{"Video", "All Video"}, {"Video", "Directories", "Movies", "2020"}}
	if len(video) != len(wantVideo) {
		t.Fatalf("video placements = %d, want %d", len(video), len(wantVideo))
	}
	for i, w := range wantVideo {
		if !reflect.DeepEqual(video[i].Chain, w) {
			t.Errorf("video chain %d = %q, want %q", i, video[i].Chain, w)
		}
	}

	mod := time.Date(2021, time.March, 5, 10, 0, 0, 0, time.UTC)
	img := b.Layout(Item{Kind: KindImage, Title: "beach", ModTime: mod})
	if len(img) != 2 || !reflect.DeepEqual(img[1].Chain, Chain{"Photos", "Date", "2021", "03"}) {
		t.Errorf("image placements = %+v", img)
	}

	tagged := b.Layout(Item{Kind: KindImage, Title: "beach", ModTime: mod, Meta: Record{KeyDate: "2019-07-04"}})
	if !reflect.DeepEqual(tagged[1].Chain, Chain{"Photos", "Date", "2019", "07"}) {
		t.Errorf("image date chain = %q", tagged[1].Chain)
	}
}

func TestPlaylistChains(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	got := b.PlaylistChains(Item{Kind: KindPlaylist, Title: "Road", Dirs: []string{"music", "lists"}})
	want := []Chain{
		{"Playlists", "All Playlists", "Road"},
		{"Playlists", "Directories", "lists", "Road"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PlaylistChains() = %q, want %q", got, want)
	}

	cfg := DefaultConfig()
	cfg.Disabled = []string{RulePlaylist}
	if got := NewBuilder(cfg).PlaylistChains(Item{Title: "Road"}); got != nil {
		t.Errorf("disabled PlaylistChains() = %q", got)
	}
}

type fakeCatalog struct {
	ids     map[string]int64
	entries []string
	failOn  string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{ids: map[string]int64{}}
}

var errFake = errors.New("boom")

func (f *fakeCatalog) ResolveContainerChain(_ context.Context, chain []string) (int64, error) {
	key := strings.Join(chain, "/")
	if f.failOn != "" && key == f.failOn {
		return 0, errFake
	}
	if id, ok := f.ids[key]; ok {
		return id, nil
	}
	id := int64(len(f.ids) + 1)
	f.ids[key] = id
	return id, nil
}

func (f *fakeCatalog) AddClassificationEntry(_ context.Context, objectID, containerID int64, title string, _ map[string]string) error {
	f.entries = append(f.entries, title)
	return nil
}

func TestClassifyResolvesEveryChain(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	cat := newFakeCatalog()

	first, err := b.Classify(context.Background(), audioItem(), cat)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	second, err := b.Classify(context.Background(), audioItem(), cat)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(first) != 14 {
		t.Fatalf("Classify() = %d entries, want 14", len(first))
	}
	for i := range first {
		if first[i].ContainerID != second[i].ContainerID {
			t.Errorf("entry %d resolved to %d then %d", i, first[i].ContainerID, second[i].ContainerID)
		}
	}
	if len(cat.ids) != 14 {
		t.Errorf("distinct containers = %d, want 14", len(cat.ids))
	}
}

func TestClassifyResolverError(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	cat := newFakeCatalog()
	cat.failOn = "-Genre-/Genre/--all--"

	entries, err := b.Classify(context.Background(), audioItem(), cat)
	if !errors.Is(err, errFake) {
		t.Fatalf("Classify() error = %v, want %v", err, errFake)
	}
	if len(entries) != 7 {
		t.Errorf("entries before failure = %d, want 7", len(entries))
	}
}

func TestClassifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(DefaultConfig()).Classify(ctx, audioItem(), newFakeCatalog())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Classify() error = %v, want context.Canceled", err)
	}
}

func TestApplyWritesEntries(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	cat := newFakeCatalog()

	n, err := b.Apply(context.Background(), 7, audioItem(), cat)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if n != 14 || len(cat.entries) != 14 {
		t.Errorf("Apply() wrote %d (%d recorded), want 14", n, len(cat.entries))
	}
}
