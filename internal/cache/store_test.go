package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_PutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Put("h1", map[string]any{"n": float64(5)}, "lab/e.t.p", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !s.Has("h1") {
		t.Fatal("expected Has(h1) to be true after Put")
	}

	v, err := s.Get("h1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["n"] != float64(5) {
		t.Fatalf("expected round-tripped map, got %#v", v)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Get("missing"); err == nil {
		t.Fatal("expected NotFoundError")
	}
}

func TestStore_Put_UnionsSources(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("h1", 1, "label-a", nil); err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	if err := s.Put("h1", 1, "label-a", nil); err != nil {
		t.Fatalf("Put 2: %v", err)
	}
	if err := s.Put("h1", 1, "label-b", nil); err != nil {
		t.Fatalf("Put 3: %v", err)
	}
	row, ok := s.Metadata().Get("h1")
	if !ok {
		t.Fatal("expected row for h1")
	}
	if len(row.Sources) != 2 {
		t.Fatalf("expected 2 deduplicated sources, got %v", row.Sources)
	}
}

func TestStore_TimeMonotonicity(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("h1", 1, "", nil); err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	first, _ := s.Metadata().Get("h1")

	if err := s.Put("h1", 1, "", nil); err != nil {
		t.Fatalf("Put 2: %v", err)
	}
	second, _ := s.Metadata().Get("h1")

	if !second.TimeCreated.Equal(first.TimeCreated) {
		t.Errorf("time_created changed after second write: %v != %v", first.TimeCreated, second.TimeCreated)
	}
	if second.TimeModified.Before(second.TimeCreated) {
		t.Errorf("time_modified %v before time_created %v", second.TimeModified, second.TimeCreated)
	}
}

func TestStore_AddFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.bin")
	if err := os.WriteFile(src, []byte("DATA"), 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	cacheDir := t.TempDir()
	s, err := Open(cacheDir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hash, err := s.AddFile(src)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if hash != "in.bin" {
		t.Errorf("expected hash to equal basename, got %q", hash)
	}

	hashes := s.KeysBy("filename", "in.bin")
	if len(hashes) != 1 || hashes[0] != "in.bin" {
		t.Fatalf("expected KeysBy to resolve filename, got %v", hashes)
	}

	v, err := s.Get(hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, ok := v.([]byte)
	if !ok || string(b) != "DATA" {
		t.Fatalf("expected round-tripped raw bytes, got %#v", v)
	}
}

func TestStore_Rename(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("deadbeefcafef00d", 42, "My Lab/exp.control.proc", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	newName := CanonicalFilename("deadbeefcafef00d", []string{"My Lab/exp.control.proc"})
	if err := s.Rename("deadbeefcafef00d", newName); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	hashes := s.KeysBy("filename", newName)
	if len(hashes) != 1 || hashes[0] != "deadbeefcafef00d" {
		t.Fatalf("expected KeysBy(filename, %q) to resolve hash, got %v", newName, hashes)
	}

	v, err := s.Get("deadbeefcafef00d")
	if err != nil {
		t.Fatalf("Get after rename: %v", err)
	}
	if v != float64(42) {
		t.Errorf("expected payload to round-trip after rename, got %v", v)
	}
}

func TestStore_Sync_DropsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("h1", 1, "", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "h1")); err != nil {
		t.Fatalf("removeFile: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if s.Has("h1") {
		t.Fatal("expected row to be dropped after its file disappeared")
	}
}

func TestStore_Sync_AdoptsOrphanFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "orphan"), []byte("raw\nbytes"), 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !s.Has("orphan") {
		t.Fatal("expected orphan file to be adopted under its own filename as hash")
	}
}
