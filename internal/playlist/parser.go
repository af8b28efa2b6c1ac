package playlist

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"media-catalog/internal/database"
	"media-catalog/internal/layout"
	"media-catalog/internal/metrics"
)

// Resolver maps a path named by a playlist line to a catalog object,
// importing it if needed. importer.ObjectResolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, path string) (*database.Object, bool)
}

// Catalog is the storage the Parser writes playlist entries to.
type Catalog interface {
	ResolveContainerChain(ctx context.Context, chain []string) (int64, error)
	AddPlaylistEntry(ctx context.Context, pe database.PlaylistEntry) error
	DeleteEntriesByOrigin(ctx context.Context, originID int64) (int64, error)
}

// Parser is the built-in Evaluator for M3U, M3U8 and PLS playlists. Every
// line that resolves to an object becomes an entry, in playlist order, in
// the playlist's own containers.
type Parser struct {
	root     string
	builder  *layout.Builder
	resolver Resolver
	catalog  Catalog
}

// NewParser creates a Parser. root is the media directory, used to place
// playlists under their folder.
func NewParser(root string, builder *layout.Builder, resolver Resolver, catalog Catalog) *Parser {
	return &Parser{root: root, builder: builder, resolver: resolver, catalog: catalog}
}

type parserStateKey struct{}

type parserState struct {
	pls        bool
	dir        string
	containers []int64
	position   int
	// nextTitle is set by #EXTINF and consumed by the following path.
	nextTitle string
	plsItems  map[int]*plsItem
}

type plsItem struct {
	file  string
	title string
}

// begin drops the entries of the previous import of this playlist and
// resolves its containers.
func (p *Parser) begin(ctx context.Context, scope *Scope) (*parserState, error) {
	if st, ok := scope.Value(parserStateKey{}).(*parserState); ok {
		return st, nil
	}
	item := scope.Item
	st := &parserState{
		pls: strings.EqualFold(filepath.Ext(item.Path), ".pls"),
		dir: filepath.Dir(item.Path),
	}

	if _, err := p.catalog.DeleteEntriesByOrigin(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("clear previous entries: %w", err)
	}

	if li, ok := item.LayoutItem(p.root); ok {
		for _, chain := range p.builder.PlaylistChains(li) {
			id, err := p.catalog.ResolveContainerChain(ctx, chain)
			if err != nil {
				return nil, fmt.Errorf("resolve chain %q: %w", chain.String(), err)
			}
			st.containers = append(st.containers, id)
		}
	}

	scope.SetValue(parserStateKey{}, st)
	return st, nil
}

// Evaluate handles one playlist line.
func (p *Parser) Evaluate(ctx context.Context, scope *Scope, line string) error {
	st, err := p.begin(ctx, scope)
	if err != nil {
		return err
	}
	if st.pls {
		st.parsePLS(line)
		return nil
	}

	if strings.HasPrefix(line, "#") {
		if info, ok := strings.CutPrefix(line, "#EXTINF:"); ok {
			if _, title, found := strings.Cut(info, ","); found {
				st.nextTitle = strings.TrimSpace(title)
			}
		}
		return nil
	}

	title := st.nextTitle
	st.nextTitle = ""
	return p.add(ctx, scope, st, line, title)
}

// Finish writes buffered PLS entries in index order.
func (p *Parser) Finish(ctx context.Context, scope *Scope) error {
	st, err := p.begin(ctx, scope)
	if err != nil {
		return err
	}
	if !st.pls {
		return nil
	}
	indexes := make([]int, 0, len(st.plsItems))
	for i := range st.plsItems {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		it := st.plsItems[i]
		if it.file == "" {
			continue
		}
		if err := p.add(ctx, scope, st, it.file, it.title); err != nil {
			return err
		}
	}
	return nil
}

func (st *parserState) parsePLS(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return // [playlist] header or junk
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	var field string
	for _, f := range []string{"file", "title", "length"} {
		if strings.HasPrefix(key, f) {
			field = f
			break
		}
	}
	if field == "" {
		return
	}
	idx, err := strconv.Atoi(key[len(field):])
	if err != nil || idx <= 0 {
		return
	}

	if st.plsItems == nil {
		st.plsItems = make(map[int]*plsItem)
	}
	it := st.plsItems[idx]
	if it == nil {
		it = &plsItem{}
		st.plsItems[idx] = it
	}
	switch field {
	case "file":
		it.file = value
	case "title":
		it.title = value
	}
}

func (p *Parser) add(ctx context.Context, scope *Scope, st *parserState, ref, title string) error {
	if strings.Contains(ref, "://") {
		log.Debug("Skipping URL in %s line %d: %s", scope.Item.Path, scope.Line, ref)
		return nil
	}
	path := resolveRef(st.dir, ref)

	obj, ok := p.resolver.Resolve(ctx, path)
	if !ok {
		log.Debug("Unresolved entry in %s line %d: %s", scope.Item.Path, scope.Line, path)
		return nil
	}
	if title == "" {
		if li, ok := obj.LayoutItem(p.root); ok {
			title = li.DisplayTitle()
		} else {
			title = strings.TrimSuffix(obj.Name, filepath.Ext(obj.Name))
		}
	}

	st.position++
	for _, containerID := range st.containers {
		err := p.catalog.AddPlaylistEntry(ctx, database.PlaylistEntry{
			PlaylistID:  scope.Item.ID,
			ObjectID:    obj.ID,
			ContainerID: containerID,
			Title:       title,
			Position:    st.position,
		})
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
	}
	metrics.PlaylistEntriesTotal.Inc()
	return nil
}

// resolveRef turns a playlist reference into a clean absolute path.
// Backslash separators are accepted.
func resolveRef(dir, ref string) string {
	ref = filepath.FromSlash(strings.ReplaceAll(ref, `\`, "/"))
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(dir, ref)
	}
	return filepath.Clean(ref)
}
