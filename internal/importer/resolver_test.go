package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"media-catalog/internal/database"
)

type fakeFinder struct {
	objects map[string]*database.Object
	err     error
}

func (f *fakeFinder) FindByPath(_ context.Context, path string) (*database.Object, error) {
	if f.err != nil {
		return nil, f.err
	}
	if obj, ok := f.objects[path]; ok {
		return obj, nil
	}
	return nil, database.ErrNotFound
}

type fakeImporter struct {
	obj   *database.Object
	err   error
	calls []string
	recur []bool
}

func (f *fakeImporter) ImportFromPath(_ context.Context, path string, recursive bool) (*database.Object, error) {
	f.calls = append(f.calls, path)
	f.recur = append(f.recur, recursive)
	return f.obj, f.err
}

func TestObjectResolver(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "new.mp3")
	if err := os.WriteFile(onDisk, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	known := &database.Object{ID: 1, Path: filepath.Join(dir, "known.mp3")}
	imported := &database.Object{ID: 2, Path: onDisk}

	tests := []struct {
		name        string
		path        string
		finderErr   error
		importObj   *database.Object
		importErr   error
		wantID      int64
		wantOK      bool
		wantImports int
	}{
		{name: "catalog hit", path: known.Path, wantID: 1, wantOK: true},
		{name: "imported on miss", path: onDisk, importObj: imported, wantID: 2, wantOK: true, wantImports: 1},
		{name: "missing on storage", path: filepath.Join(dir, "nope.mp3")},
		{name: "directory", path: dir},
		{name: "not importable", path: onDisk, wantImports: 1},
		{name: "import failed", path: onDisk, importErr: errors.New("boom"), wantImports: 1},
		{name: "catalog error", path: onDisk, finderErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &fakeFinder{objects: map[string]*database.Object{known.Path: known}, err: tt.finderErr}
			imp := &fakeImporter{obj: tt.importObj, err: tt.importErr}
			r := NewObjectResolver(finder, imp)

			obj, ok := r.Resolve(context.Background(), tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && obj.ID != tt.wantID {
				t.Errorf("Resolve() id = %d, want %d", obj.ID, tt.wantID)
			}
			if !ok && obj != nil {
				t.Errorf("absent result carried an object: %+v", obj)
			}
			if len(imp.calls) != tt.wantImports {
				t.Errorf("ImportFromPath calls = %d, want %d", len(imp.calls), tt.wantImports)
			}
			for _, rec := range imp.recur {
				if rec {
					t.Error("resolver asked for a recursive import")
				}
			}
		})
	}
}
