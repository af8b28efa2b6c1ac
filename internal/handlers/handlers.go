package handlers

import (
	"context"

	"media-catalog/internal/database"
	"media-catalog/internal/importer"
	"media-catalog/internal/layout"
)

// IndexerService is the part of the indexer the handlers use.
type IndexerService interface {
	GetHealthStatus() importer.HealthStatus
	IsReady() bool
	IsIndexing() bool
	TriggerIndex()
}

// PathImporter imports a single path below the media directory.
type PathImporter interface {
	ImportFromPath(ctx context.Context, path string, recursive bool) (*database.Object, error)
}

type Handlers struct {
	db       *database.Database
	indexer  IndexerService
	importer PathImporter
	builder  *layout.Builder
}

func New(db *database.Database, idx IndexerService, imp PathImporter, builder *layout.Builder) *Handlers {
	return &Handlers{
		db:       db,
		indexer:  idx,
		importer: imp,
		builder:  builder,
	}
}
