package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/google/uuid"

	"media-catalog/internal/database"
	"media-catalog/internal/importer"
	"media-catalog/internal/layout"
	"media-catalog/internal/logging"
)

// ImportRequest names a path relative to the media directory.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse reports the imported object.
type ImportResponse struct {
	RunID    string              `json:"runId"`
	ObjectID int64               `json:"objectId"`
	Type     database.ObjectType `json:"type"`
	Path     string              `json:"path"`
}

// ImportPath imports a single file. Directories are not walked; use
// Reindex for that.
func (h *Handlers) ImportPath(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	runID := uuid.NewString()
	obj, err := h.importer.ImportFromPath(r.Context(), req.Path, false)
	switch {
	case errors.Is(err, importer.ErrOutsideRoot):
		writeJSONError(w, "path is outside the media directory", http.StatusBadRequest)
		return
	case errors.Is(err, fs.ErrNotExist):
		writeJSONError(w, "path not found", http.StatusNotFound)
		return
	case err != nil && obj == nil:
		logging.Error("import %s (run %s): %v", req.Path, runID, err)
		writeJSONError(w, "Import failed", http.StatusInternalServerError)
		return
	case err != nil:
		logging.Warn("import %s (run %s) finished with errors: %v", req.Path, runID, err)
	case obj == nil:
		writeJSONError(w, "not an importable media file", http.StatusUnprocessableEntity)
		return
	}

	writeJSONStatus(w, http.StatusOK, ImportResponse{RunID: runID, ObjectID: obj.ID, Type: obj.Type, Path: obj.Path})
}

// Reindex starts a full index run in the background.
func (h *Handlers) Reindex(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsIndexing() {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"status": "already_running"})
		return
	}
	h.indexer.TriggerIndex()
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// ClassifyRequest describes an item to dry-run through the layout rules.
type ClassifyRequest struct {
	Kind  layout.Kind       `json:"kind"`
	Title string            `json:"title"`
	Dirs  []string          `json:"dirs"`
	Meta  map[string]string `json:"meta"`
}

// PlacementResponse is one container an item would be filed under.
type PlacementResponse struct {
	Rule  string   `json:"rule"`
	Chain []string `json:"chain"`
	Title string   `json:"title"`
}

// Classify returns the placements the layout builder computes for the
// posted item without touching the catalog.
func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Kind {
	case layout.KindAudio, layout.KindVideo, layout.KindImage, layout.KindPlaylist:
	default:
		writeJSONError(w, "kind must be audio, video, image or playlist", http.StatusBadRequest)
		return
	}

	item := layout.Item{Kind: req.Kind, Title: req.Title, Dirs: req.Dirs, Meta: layout.Record(req.Meta)}
	var out []PlacementResponse
	if req.Kind == layout.KindPlaylist {
		for _, c := range h.builder.PlaylistChains(item) {
			out = append(out, PlacementResponse{Rule: layout.RulePlaylist, Chain: c, Title: item.DisplayTitle()})
		}
	} else {
		for _, p := range h.builder.Layout(item) {
			out = append(out, PlacementResponse{Rule: p.Rule, Chain: p.Chain, Title: p.Title})
		}
	}
	writeJSONStatus(w, http.StatusOK, map[string]interface{}{"placements": nonNil(out)})
}
