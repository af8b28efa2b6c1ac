package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

// setupTestDB creates a catalog in a temporary directory.
func setupTestDB(t testing.TB) (db *Database, dbPath string) {
	t.Helper()

	dbPath = filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

func insertObject(t *testing.T, db *Database, path string, typ ObjectType) *Object {
	t.Helper()
	obj := &Object{Path: path, Type: typ, Size: 10, ModTime: time.Unix(1700000000, 0)}
	if _, err := db.UpsertObject(context.Background(), obj); err != nil {
		t.Fatalf("UpsertObject(%s) error = %v", path, err)
	}
	return obj
}

func TestNewDatabase(t *testing.T) {
	db, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	version, err := db.GetMetadata(context.Background(), "schema_version")
	if err != nil || version != "2" {
		t.Errorf("schema_version = %q, %v", version, err)
	}

	root, err := db.GetContainer(context.Background(), RootContainerID)
	if err != nil {
		t.Fatalf("GetContainer(root) error = %v", err)
	}
	if root.Name != "" || root.ChildCount != 0 {
		t.Errorf("root = %+v", root)
	}
}

func TestNewDatabaseReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	db, err := New(ctx, dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	id, err := db.ResolveContainerChain(ctx, []string{"-Album-", "-ABCD-"})
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = New(ctx, dbPath, &Options{MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db.Close()

	again, err := db.ResolveContainerChain(ctx, []string{"-Album-", "-ABCD-"})
	if err != nil || again != id {
		t.Errorf("after reopen chain id = %d, %v, want %d", again, err, id)
	}
}

func TestResolveContainerChain(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	root, err := db.ResolveContainerChain(ctx, nil)
	if err != nil || root != RootContainerID {
		t.Fatalf("empty chain = %d, %v", root, err)
	}

	chain := []string{"-Year-", "2010 - 2019", "2018"}
	leaf, err := db.ResolveContainerChain(ctx, chain)
	if err != nil {
		t.Fatalf("ResolveContainerChain() error = %v", err)
	}

	again, err := db.ResolveContainerChain(ctx, chain)
	if err != nil || again != leaf {
		t.Errorf("second resolve = %d, %v, want %d", again, err, leaf)
	}

	parent, err := db.ResolveContainerChain(ctx, chain[:2])
	if err != nil {
		t.Fatal(err)
	}
	c, err := db.GetContainer(ctx, leaf)
	if err != nil {
		t.Fatal(err)
	}
	if c.ParentID != parent || c.Name != "2018" {
		t.Errorf("leaf = %+v, want parent %d", c, parent)
	}

	path, err := db.ContainerPath(ctx, leaf)
	if err != nil || !reflect.DeepEqual(path, chain) {
		t.Errorf("ContainerPath() = %q, %v, want %q", path, err, chain)
	}

	counts, err := db.Counts(ctx)
	if err != nil || counts.Containers != 3 {
		t.Errorf("containers = %d, %v, want 3", counts.Containers, err)
	}

	if _, err := db.ResolveContainerChain(ctx, []string{"-Year-", " ", "2018"}); !errors.Is(err, ErrEmptySegment) {
		t.Errorf("empty segment error = %v, want ErrEmptySegment", err)
	}
}

func TestResolveContainerChainConcurrent(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	chains := [][]string{
		{"-Artist-", "--all--", "Artist"},
		{"-Artist-", "-ABCD-", "-all-", "Artist"},
		{"-Artist-", "-ABCD-", "A", "Artist"},
	}

	const workers = 8
	results := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for _, c := range chains {
				id, err := db.ResolveContainerChain(ctx, c)
				if err != nil {
					t.Errorf("worker %d: %v", w, err)
					return
				}
				results[w] = append(results[w], id)
			}
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		if !reflect.DeepEqual(results[w], results[0]) {
			t.Errorf("worker %d ids = %v, worker 0 ids = %v", w, results[w], results[0])
		}
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// -Artist-, --all--, Artist, -ABCD-, -all-, Artist, A, Artist
	if counts.Containers != 8 {
		t.Errorf("containers = %d, want 8", counts.Containers)
	}
}

func TestUpsertObject(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	obj := &Object{
		Path:     "/media/music/song.mp3",
		Type:     ObjectTypeAudio,
		MimeType: "audio/mpeg",
		Size:     100,
		ModTime:  time.Unix(1700000000, 0),
		Metadata: map[string]string{"dc:title": "Song"},
	}
	changed, err := db.UpsertObject(ctx, obj)
	if err != nil || !changed || obj.ID == 0 {
		t.Fatalf("first UpsertObject() = %v, %v (id %d)", changed, err, obj.ID)
	}
	firstID := obj.ID

	changed, err = db.UpsertObject(ctx, obj)
	if err != nil || changed || obj.ID != firstID {
		t.Errorf("unchanged UpsertObject() = %v, %v (id %d)", changed, err, obj.ID)
	}

	obj.Size = 200
	changed, err = db.UpsertObject(ctx, obj)
	if err != nil || !changed {
		t.Errorf("resized UpsertObject() = %v, %v", changed, err)
	}

	found, err := db.FindByPath(ctx, "/media/music/../music/song.mp3")
	if err != nil {
		t.Fatalf("FindByPath() error = %v", err)
	}
	if found.ID != firstID || found.Name != "song.mp3" || found.ParentPath != "/media/music" {
		t.Errorf("found = %+v", found)
	}
	if found.Metadata["dc:title"] != "Song" || found.Size != 200 {
		t.Errorf("found metadata/size = %v / %d", found.Metadata, found.Size)
	}

	if _, err := db.FindByPath(ctx, "/media/missing.mp3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByPath(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetObject(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetObject(9999) error = %v, want ErrNotFound", err)
	}
}

func TestEntries(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	song := insertObject(t, db, "/media/a.mp3", ObjectTypeAudio)
	other := insertObject(t, db, "/media/b.mp3", ObjectTypeAudio)
	list := insertObject(t, db, "/media/list.m3u", ObjectTypePlaylist)

	byArtist, _ := db.ResolveContainerChain(ctx, []string{"-Artist-", "Artist"})
	byTrack, _ := db.ResolveContainerChain(ctx, []string{"-Track-", "--all--"})
	playlist, _ := db.ResolveContainerChain(ctx, []string{"Playlists", "All Playlists", "list"})

	if err := db.AddClassificationEntry(ctx, song.ID, byArtist, "A (Album, 2018)", map[string]string{"upnp:date": "2018"}); err != nil {
		t.Fatal(err)
	}
	if err := db.AddClassificationEntry(ctx, song.ID, byTrack, "A - Artist", nil); err != nil {
		t.Fatal(err)
	}
	for i, id := range []int64{other.ID, song.ID} {
		if err := db.AddPlaylistEntry(ctx, PlaylistEntry{PlaylistID: list.ID, ObjectID: id, ContainerID: playlist, Title: "t", Position: i}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := db.ListEntries(ctx, byArtist, 0, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListEntries() = %d, %v", len(entries), err)
	}
	if entries[0].Title != "A (Album, 2018)" || entries[0].Metadata["upnp:date"] != "2018" || entries[0].ObjectPath != "/media/a.mp3" {
		t.Errorf("entry = %+v", entries[0])
	}

	inList, err := db.ListEntries(ctx, playlist, 0, 0)
	if err != nil || len(inList) != 2 || inList[0].ObjectID != other.ID || inList[1].ObjectID != song.ID {
		t.Errorf("playlist entries out of order: %+v, %v", inList, err)
	}

	forSong, err := db.EntriesForObject(ctx, song.ID)
	if err != nil || len(forSong) != 3 {
		t.Errorf("EntriesForObject() = %d, %v, want 3", len(forSong), err)
	}

	n, err := db.DeleteEntriesByOrigin(ctx, song.ID)
	if err != nil || n != 2 {
		t.Errorf("DeleteEntriesByOrigin() = %d, %v, want 2", n, err)
	}

	// Deleting the playlist removes the entries it created.
	if err := db.DeleteObject(ctx, list.ID); err != nil {
		t.Fatal(err)
	}
	inList, err = db.ListEntries(ctx, playlist, 0, 0)
	if err != nil || len(inList) != 0 {
		t.Errorf("playlist entries after delete = %d, %v", len(inList), err)
	}
}

func TestDeleteMissingObjects(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	insertObject(t, db, "/media/a.mp3", ObjectTypeAudio)
	insertObject(t, db, "/media/sub/b.mp3", ObjectTypeAudio)
	insertObject(t, db, "/mediafiles/c.mp3", ObjectTypeAudio)

	tx, err := db.BeginBatch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	n, err := db.DeleteMissingObjects(tx, "/media", time.Now().Add(time.Hour))
	if err = db.EndBatch(tx, err); err != nil {
		t.Fatalf("DeleteMissingObjects() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if _, err := db.FindByPath(ctx, "/mediafiles/c.mp3"); err != nil {
		t.Errorf("object outside root was deleted: %v", err)
	}
}

func TestPruneEmptyContainers(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	song := insertObject(t, db, "/media/a.mp3", ObjectTypeAudio)
	keep, _ := db.ResolveContainerChain(ctx, []string{"a", "kept"})
	if _, err := db.ResolveContainerChain(ctx, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if err := db.AddClassificationEntry(ctx, song.ID, keep, "song", nil); err != nil {
		t.Fatal(err)
	}

	n, err := db.PruneEmptyContainers(ctx)
	if err != nil || n != 2 {
		t.Fatalf("PruneEmptyContainers() = %d, %v, want 2", n, err)
	}

	children, err := db.ListChildren(ctx, RootContainerID)
	if err != nil || len(children) != 1 || children[0].Name != "a" || children[0].ChildCount != 1 {
		t.Errorf("root children = %+v, %v", children, err)
	}

	// The cache must not hand out ids of pruned containers.
	id, err := db.ResolveContainerChain(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetContainer(ctx, id); err != nil {
		t.Errorf("re-resolved container missing: %v", err)
	}
}

func TestCountsAndMetadata(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	insertObject(t, db, "/media/a.mp3", ObjectTypeAudio)
	insertObject(t, db, "/media/b.mp4", ObjectTypeVideo)

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Objects[ObjectTypeAudio] != 1 || counts.Objects[ObjectTypeVideo] != 1 || counts.Entries != 0 {
		t.Errorf("counts = %+v", counts)
	}

	stats := db.CatalogStats()
	if stats.Objects["audio"] != 1 {
		t.Errorf("CatalogStats() = %+v", stats)
	}

	if _, err := db.GetMetadata(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMetadata(missing) error = %v", err)
	}

	last, err := db.GetLastIndexRun(ctx)
	if err != nil || !last.IsZero() {
		t.Errorf("GetLastIndexRun() before any run = %v, %v", last, err)
	}
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := db.SetLastIndexRun(ctx, when); err != nil {
		t.Fatal(err)
	}
	last, err = db.GetLastIndexRun(ctx)
	if err != nil || !last.Equal(when) {
		t.Errorf("GetLastIndexRun() = %v, %v, want %v", last, err, when)
	}
}
