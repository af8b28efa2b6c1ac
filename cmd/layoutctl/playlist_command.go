package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"media-catalog/internal/database"
	"media-catalog/internal/layout"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metadata"
	"media-catalog/internal/playlist"
)

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "playlist <file>",
		Short: "Parse a playlist and show the entries it would produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, err := ctx.builder()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if root == "" {
				root = filepath.Dir(path)
			}
			if root, err = filepath.Abs(root); err != nil {
				return err
			}

			run := newDryRun(root, builder)
			if err := run.process(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.render())
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Media root (default: the playlist's directory)")
	return cmd
}

// dryRun is an in-memory catalog for parsing one playlist without a
// database.
type dryRun struct {
	root      string
	builder   *layout.Builder
	extractor *metadata.Extractor

	mu      sync.Mutex
	nextID  int64
	objects map[string]*database.Object
	chains  map[string]int64
	names   map[int64]string
	entries []database.PlaylistEntry
}

func newDryRun(root string, builder *layout.Builder) *dryRun {
	return &dryRun{
		root:      root,
		builder:   builder,
		extractor: metadata.NewExtractor(),
		objects:   make(map[string]*database.Object),
		chains:    make(map[string]int64),
		names:     make(map[int64]string),
	}
}

func (r *dryRun) process(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	item := r.object(path, info, mediatypes.FileTypePlaylist, nil)

	parser := playlist.NewParser(r.root, r.builder, r, r)
	return playlist.NewDriver(parser, playlist.Options{}).Process(ctx, item)
}

func (r *dryRun) object(path string, info os.FileInfo, ft mediatypes.FileType, meta layout.Record) *database.Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	obj := &database.Object{
		ID:         r.nextID,
		Path:       path,
		Name:       info.Name(),
		ParentPath: filepath.Dir(path),
		Type:       database.ObjectType(ft),
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		Metadata:   meta,
	}
	r.objects[path] = obj
	return obj
}

// Resolve implements playlist.Resolver against the file system.
func (r *dryRun) Resolve(ctx context.Context, path string) (*database.Object, bool) {
	r.mu.Lock()
	obj, ok := r.objects[path]
	r.mu.Unlock()
	if ok {
		return obj, true
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	ft := mediatypes.FileTypeOf(path)
	if ft == mediatypes.FileTypeOther {
		return nil, false
	}
	meta, _ := r.extractor.Extract(ctx, path, ft)
	return r.object(path, info, ft, meta), true
}

// ResolveContainerChain implements playlist.Catalog.
func (r *dryRun) ResolveContainerChain(_ context.Context, chain []string) (int64, error) {
	key := layout.Chain(chain).String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.chains[key]; ok {
		return id, nil
	}
	id := int64(len(r.chains) + 1)
	r.chains[key] = id
	r.names[id] = key
	return id, nil
}

// AddPlaylistEntry implements playlist.Catalog.
func (r *dryRun) AddPlaylistEntry(_ context.Context, pe database.PlaylistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, pe)
	return nil
}

// DeleteEntriesByOrigin implements playlist.Catalog.
func (r *dryRun) DeleteEntriesByOrigin(_ context.Context, originID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.PlaylistID != originID {
			kept = append(kept, e)
		}
	}
	removed := int64(len(r.entries) - len(kept))
	r.entries = kept
	return removed, nil
}

func (r *dryRun) render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return "No entries"
	}

	paths := make(map[int64]string, len(r.objects))
	for p, obj := range r.objects {
		if rel, err := filepath.Rel(r.root, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
		paths[obj.ID] = p
	}

	entries := append([]database.PlaylistEntry(nil), r.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ContainerID != entries[j].ContainerID {
			return entries[i].ContainerID < entries[j].ContainerID
		}
		return entries[i].Position < entries[j].Position
	})

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{r.names[e.ContainerID], strconv.Itoa(e.Position), e.Title, paths[e.ObjectID]})
	}
	return renderTable([]string{"Container", "#", "Title", "File"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft})
}
