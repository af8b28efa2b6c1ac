package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
)

const defaultEntryLimit = 500

// StatsResponse is returned by GetStats.
type StatsResponse struct {
	Counts       database.CatalogCounts `json:"counts"`
	LastRun      database.IndexStats    `json:"lastRun"`
	LastIndexRun *time.Time             `json:"lastIndexRun,omitempty"`
}

// GetStats returns catalog counts and the result of the last index run.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.db.Counts(r.Context())
	if err != nil {
		logging.Error("stats: %v", err)
		writeJSONError(w, "Failed to read catalog stats", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{Counts: counts, LastRun: h.db.GetStats()}
	if last, err := h.db.GetLastIndexRun(r.Context()); err == nil && !last.IsZero() {
		resp.LastIndexRun = &last
	}
	writeJSONStatus(w, http.StatusOK, resp)
}

// ContainerResponse is a container with its children and a page of its
// entries.
type ContainerResponse struct {
	Container *database.Container  `json:"container"`
	Path      []string             `json:"path"`
	Children  []database.Container `json:"children"`
	Entries   []database.Entry     `json:"entries"`
}

// GetContainer returns one node of the virtual tree. Id 0 is the root.
// Entries are paged with ?limit= and ?offset=.
func (h *Handlers) GetContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, okLimit := queryInt(r, "limit", defaultEntryLimit)
	offset, okOffset := queryInt(r, "offset", 0)
	if !okLimit || !okOffset {
		writeJSONError(w, "Invalid paging parameters", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	c, err := h.db.GetContainer(ctx, id)
	if err != nil {
		writeLookupError(w, "container", err)
		return
	}
	path, err := h.db.ContainerPath(ctx, id)
	if err != nil {
		writeLookupError(w, "container", err)
		return
	}
	children, err := h.db.ListChildren(ctx, id)
	if err != nil {
		writeLookupError(w, "container", err)
		return
	}
	entries, err := h.db.ListEntries(ctx, id, limit, offset)
	if err != nil {
		writeLookupError(w, "container", err)
		return
	}

	writeJSONStatus(w, http.StatusOK, ContainerResponse{
		Container: c,
		Path:      nonNil(path),
		Children:  nonNil(children),
		Entries:   nonNil(entries),
	})
}

// ObjectResponse is an object with every place it is filed under.
type ObjectResponse struct {
	Object  *database.Object `json:"object"`
	Entries []database.Entry `json:"entries"`
}

// GetObject returns an imported object and its entries.
func (h *Handlers) GetObject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	obj, err := h.db.GetObject(r.Context(), id)
	if err != nil {
		writeLookupError(w, "object", err)
		return
	}
	entries, err := h.db.EntriesForObject(r.Context(), id)
	if err != nil {
		writeLookupError(w, "object", err)
		return
	}
	writeJSONStatus(w, http.StatusOK, ObjectResponse{Object: obj, Entries: nonNil(entries)})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 0 {
		writeJSONError(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeLookupError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, what+" not found", http.StatusNotFound)
		return
	}
	logging.Error("%s lookup: %v", what, err)
	writeJSONError(w, "Failed to read "+what, http.StatusInternalServerError)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
