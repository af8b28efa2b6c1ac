package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-catalog/internal/database"
	"media-catalog/internal/importer"
	"media-catalog/internal/layout"
)

type mockIndexer struct {
	mu        sync.Mutex
	status    importer.HealthStatus
	indexing  bool
	triggered int
}

func (m *mockIndexer) GetHealthStatus() importer.HealthStatus { return m.status }
func (m *mockIndexer) IsReady() bool                          { return m.status.Ready }
func (m *mockIndexer) IsIndexing() bool                       { return m.indexing }

func (m *mockIndexer) TriggerIndex() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered++
}

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type testEnv struct {
	db      *database.Database
	root    string
	indexer *mockIndexer
	router  *mux.Router
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	root := t.TempDir()
	builder := layout.NewBuilder(layout.DefaultConfig())
	imp := importer.New(db, root, builder, importer.Options{Workers: 1})
	idx := &mockIndexer{}

	h := New(db, idx, imp, builder)
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", h.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/api/containers/{id}", h.GetContainer).Methods(http.MethodGet)
	r.HandleFunc("/api/objects/{id}", h.GetObject).Methods(http.MethodGet)
	r.HandleFunc("/api/import", h.ImportPath).Methods(http.MethodPost)
	r.HandleFunc("/api/reindex", h.Reindex).Methods(http.MethodPost)
	r.HandleFunc("/api/classify", h.Classify).Methods(http.MethodPost)

	return &testEnv{db: db, root: root, indexer: idx, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	env := setupHandlers(t)

	tests := []struct {
		name       string
		status     importer.HealthStatus
		path       string
		wantCode   int
		wantStatus string
	}{
		{"starting", importer.HealthStatus{}, "/healthz", http.StatusServiceUnavailable, statusStarting},
		{"healthy", importer.HealthStatus{Ready: true, LastIndexed: time.Now()}, "/healthz", http.StatusOK, statusHealthy},
		{"degraded", importer.HealthStatus{Ready: true, InitialIndexError: "boom"}, "/healthz", http.StatusOK, statusDegraded},
		{"not ready", importer.HealthStatus{}, "/readyz", http.StatusServiceUnavailable, "not_ready"},
		{"ready", importer.HealthStatus{Ready: true}, "/readyz", http.StatusOK, "ready"},
		{"alive", importer.HealthStatus{}, "/livez", http.StatusOK, "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.indexer.status = tt.status
			rec := env.do(t, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			body := decode[map[string]interface{}](t, rec)
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
		})
	}

	if rec := env.do(t, http.MethodHead, "/livez", ""); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD /livez = %d with %d body bytes", rec.Code, rec.Body.Len())
	}
}

func TestGetVersion(t *testing.T) {
	env := setupHandlers(t)
	rec := env.do(t, http.MethodGet, "/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["version"] == "" || body["goVersion"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestImportAndBrowse(t *testing.T) {
	env := setupHandlers(t)
	dir := filepath.Join(env.root, "Clips")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "holiday.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/import", `{"path":"Clips/holiday.mp4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("import code = %d body = %s", rec.Code, rec.Body.String())
	}
	imported := decode[ImportResponse](t, rec)
	if imported.RunID == "" || imported.ObjectID == 0 || imported.Type != database.ObjectTypeVideo {
		t.Fatalf("import response = %+v", imported)
	}

	rec = env.do(t, http.MethodGet, "/api/objects/"+itoa(imported.ObjectID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("object code = %d", rec.Code)
	}
	obj := decode[ObjectResponse](t, rec)
	if len(obj.Entries) == 0 {
		t.Fatal("imported video has no entries")
	}

	entry := obj.Entries[0]
	rec = env.do(t, http.MethodGet, "/api/containers/"+itoa(entry.ContainerID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("container code = %d", rec.Code)
	}
	c := decode[ContainerResponse](t, rec)
	if len(c.Path) == 0 || len(c.Entries) == 0 || c.Entries[0].ObjectID != imported.ObjectID {
		t.Errorf("container = %+v", c)
	}

	rec = env.do(t, http.MethodGet, "/api/containers/0", "")
	root := decode[ContainerResponse](t, rec)
	if len(root.Children) == 0 || len(root.Path) != 0 {
		t.Errorf("root container = %+v", root)
	}

	rec = env.do(t, http.MethodGet, "/api/stats", "")
	stats := decode[StatsResponse](t, rec)
	if stats.Counts.Objects[database.ObjectTypeVideo] != 1 || stats.Counts.Entries == 0 {
		t.Errorf("stats = %+v", stats.Counts)
	}
}

func TestImportErrors(t *testing.T) {
	env := setupHandlers(t)
	if err := os.WriteFile(filepath.Join(env.root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"path":`, http.StatusBadRequest},
		{"unknown field", `{"file":"a"}`, http.StatusBadRequest},
		{"empty path", `{"path":""}`, http.StatusBadRequest},
		{"outside root", `{"path":"../../etc/passwd"}`, http.StatusBadRequest},
		{"missing", `{"path":"nope.mp3"}`, http.StatusNotFound},
		{"not media", `{"path":"notes.txt"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/import", tt.body)
			if rec.Code != tt.want {
				t.Errorf("code = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLookupErrors(t *testing.T) {
	env := setupHandlers(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/objects/999", http.StatusNotFound},
		{"/api/objects/abc", http.StatusBadRequest},
		{"/api/containers/999", http.StatusNotFound},
		{"/api/containers/0?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := env.do(t, http.MethodGet, tt.path, ""); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestReindex(t *testing.T) {
	env := setupHandlers(t)

	if rec := env.do(t, http.MethodPost, "/api/reindex", ""); rec.Code != http.StatusAccepted {
		t.Errorf("code = %d, want 202", rec.Code)
	}
	if env.indexer.triggered != 1 {
		t.Errorf("TriggerIndex calls = %d", env.indexer.triggered)
	}

	env.indexer.indexing = true
	if rec := env.do(t, http.MethodPost, "/api/reindex", ""); rec.Code != http.StatusConflict {
		t.Errorf("code while indexing = %d, want 409", rec.Code)
	}
	if env.indexer.triggered != 1 {
		t.Error("TriggerIndex called while indexing")
	}
}

func TestClassify(t *testing.T) {
	env := setupHandlers(t)

	body := `{"kind":"audio","title":"song","meta":{"dc:title":"Audio Title","upnp:artist":"Artist","upnp:album":"Album","dc:date":"2018-01-01","upnp:genre":"Genre"}}`
	rec := env.do(t, http.MethodPost, "/api/classify", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string][]PlacementResponse](t, rec)
	found := false
	for _, p := range resp["placements"] {
		if strings.Join(p.Chain, "/") == "-Artist-/--all--/Artist" {
			found = true
		}
	}
	if !found {
		t.Errorf("placements = %+v", resp["placements"])
	}

	rec = env.do(t, http.MethodPost, "/api/classify", `{"kind":"playlist","title":"Road","dirs":["Lists"]}`)
	resp = decode[map[string][]PlacementResponse](t, rec)
	if len(resp["placements"]) != 2 {
		t.Errorf("playlist placements = %+v", resp["placements"])
	}

	if rec := env.do(t, http.MethodPost, "/api/classify", `{"kind":"folder"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind code = %d", rec.Code)
	}
	counts, _ := env.db.Counts(context.Background())
	if counts.Containers != 0 {
		t.Errorf("classify touched the catalog: %d containers", counts.Containers)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
