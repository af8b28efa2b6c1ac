package layout

import (
	"context"
	"fmt"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// ChainResolver turns a container chain into the id of its leaf container,
// creating missing containers. Implementations must be idempotent and safe
// for concurrent callers.
type ChainResolver interface {
	ResolveContainerChain(ctx context.Context, chain []string) (int64, error)
}

// Catalog is the storage side of classification.
type Catalog interface {
	ChainResolver
	AddClassificationEntry(ctx context.Context, objectID, containerID int64, title string, meta map[string]string) error
}

type boundRule struct {
	name string
	kind Kind
	rule Rule
}

// Builder evaluates the configured rules for an item.
type Builder struct {
	cfg   Config
	rules []boundRule
}

// NewBuilder creates a Builder with every rule not disabled in cfg.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{cfg: cfg}
	for _, d := range descriptors {
		if !cfg.enabled(d.name) {
			continue
		}
		b.rules = append(b.rules, boundRule{name: d.name, kind: d.kind, rule: d.build(cfg)})
	}
	return b
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() Config {
	return b.cfg
}

// Rules returns the names of the active rules in evaluation order.
func (b *Builder) Rules() []string {
	names := make([]string, 0, len(b.rules))
	for _, r := range b.rules {
		names = append(names, r.name)
	}
	return names
}

// Layout returns the placements for item without touching storage.
func (b *Builder) Layout(item Item) []Placement {
	var out []Placement
	for _, r := range b.rules {
		if r.kind != item.Kind {
			continue
		}
		out = append(out, r.rule.Apply(item)...)
	}
	return out
}

// Classify resolves every placement of item to a container.
func (b *Builder) Classify(ctx context.Context, item Item, resolver ChainResolver) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.LayoutClassifyDuration.WithLabelValues(string(item.Kind)).Observe(time.Since(start).Seconds())
	}()

	placements := b.Layout(item)
	entries := make([]Entry, 0, len(placements))
	for _, p := range placements {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		id, err := resolver.ResolveContainerChain(ctx, p.Chain)
		if err != nil {
			metrics.LayoutChainErrors.Inc()
			return entries, fmt.Errorf("resolve chain %q: %w", p.Chain.String(), err)
		}
		metrics.LayoutPlacementsTotal.WithLabelValues(p.Rule).Inc()
		entries = append(entries, Entry{ContainerID: id, Chain: p.Chain, Title: p.Title, Meta: p.Meta})
	}
	return entries, nil
}

// Apply classifies item and records one entry per placement for objectID.
// It returns the number of entries written.
func (b *Builder) Apply(ctx context.Context, objectID int64, item Item, catalog Catalog) (int, error) {
	entries, err := b.Classify(ctx, item, catalog)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if err := catalog.AddClassificationEntry(ctx, objectID, e.ContainerID, e.Title, e.Meta); err != nil {
			return i, fmt.Errorf("add entry %q for object %d: %w", e.Chain.String(), objectID, err)
		}
	}
	logging.Debug("Classified object %d (%s) into %d containers", objectID, item.Kind, len(entries))
	return len(entries), nil
}

// PlaylistChains returns the containers that hold the contents of a
// playlist: one under "All Playlists" and one under the playlist's folder.
// It returns nil when the playlist rule is disabled.
func (b *Builder) PlaylistChains(item Item) []Chain {
	if !b.cfg.enabled(RulePlaylist) {
		return nil
	}
	title := titleOrUnknown(item)
	chains := []Chain{{"Playlists", "All Playlists", title}}
	if dirs := cleanDirs(item.Dirs); len(dirs) > 0 {
		chains = append(chains, Chain{"Playlists", "Directories", dirs[len(dirs)-1], title})
	}
	return chains
}
