package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-catalog/internal/layout"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LAYOUT_CONFIG", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyItem(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		dir      string
		meta     map[string]string
		wantKind layout.Kind
		wantDirs []string
		wantKey  string
		wantErr  bool
	}{
		{name: "alias keys", kind: "audio", meta: map[string]string{"artist": "Nina"}, wantKind: layout.KindAudio, wantKey: layout.KeyArtist},
		{name: "full keys kept", kind: "AUDIO", meta: map[string]string{layout.KeyGenre: "Jazz"}, wantKind: layout.KindAudio, wantKey: layout.KeyGenre},
		{name: "dirs split", kind: "video", dir: "/Movies/Old/", wantKind: layout.KindVideo, wantDirs: []string{"Movies", "Old"}},
		{name: "bad kind", kind: "folder", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := classifyItem(tt.kind, "t", tt.dir, tt.meta)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("classifyItem: %v", err)
			}
			if item.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", item.Kind, tt.wantKind)
			}
			if strings.Join(item.Dirs, "/") != strings.Join(tt.wantDirs, "/") {
				t.Errorf("Dirs = %v, want %v", item.Dirs, tt.wantDirs)
			}
			if tt.wantKey != "" && item.Meta.Get(tt.wantKey) == "" {
				t.Errorf("Meta missing %q: %v", tt.wantKey, item.Meta)
			}
		})
	}
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "classify", "--kind", "audio", "--title", "song",
		"--meta", "artist=Nina", "--meta", "album=Blue", "--meta", "title=Tune")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"RULE", "CONTAINER", "-Artist-/--all--/Nina", "Tune"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClassifyCommandPlaylist(t *testing.T) {
	out, err := execute(t, "classify", "--kind", "playlist", "--title", "mix", "--dir", "Lists")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"Playlists/All Playlists/mix", "Playlists/Directories/Lists/mix"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlaylistCommand(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	list := filepath.Join(root, "mix.m3u")
	content := "#EXTM3U\n#EXTINF:-1,First\na.jpg\nmissing.jpg\nb.jpg\n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "playlist", list, "--root", root)
	if err != nil {
		t.Fatalf("playlist: %v", err)
	}
	for _, want := range []string{"Playlists/All Playlists/mix", "First", "a.jpg", "b.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "missing.jpg") {
		t.Errorf("unresolved line listed:\n%s", out)
	}
}

func TestPlaylistCommandMissingFile(t *testing.T) {
	if _, err := execute(t, "playlist", filepath.Join(t.TempDir(), "none.m3u")); err == nil {
		t.Fatal("expected error for missing playlist")
	}
}

func TestStatsCommand(t *testing.T) {
	out, err := execute(t, "stats", "--db", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"containers", "entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Metric", "Value"}, [][]string{{"entries", "12"}, {"short"}},
		[]columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"METRIC", "VALUE", "entries", "12", "short"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("renderTable without headers should be empty")
	}
}
