package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"example.com/wiblgate/internal/common"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBuildTypesAndDigests(t *testing.T) {
	dir := t.TempDir()
	wiblPath := writeFile(t, dir, "survey.wibl", "raw packets")
	jsonPath := writeFile(t, dir, "survey.json", "{}")
	pdfPath := writeFile(t, dir, "survey.pdf", "%PDF-1.4")
	otherPath := writeFile(t, dir, "notes.txt", "notes")

	m, err := Build([]string{wiblPath, jsonPath, pdfPath, otherPath})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.ShaAlgo != "sha256" || m.CreatedAt.IsZero() {
		t.Fatalf("manifest header = %+v", m)
	}
	wantTypes := []string{"wibl", "json", "pdf", "other"}
	for i, item := range m.Items {
		if item.Type != wantTypes[i] {
			t.Fatalf("item %d type = %q, want %q", i, item.Type, wantTypes[i])
		}
		hex, size, err := common.Sha256OfFile(item.Path)
		if err != nil {
			t.Fatalf("rehash %s: %v", item.Path, err)
		}
		if item.Sha256 != hex || item.Size != size {
			t.Fatalf("item %d digest mismatch: %+v", i, item)
		}
	}
}

func TestBuildMissingFile(t *testing.T) {
	if _, err := Build([]string{filepath.Join(t.TempDir(), "absent.wibl")}); err == nil {
		t.Fatal("missing input accepted")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "survey.wibl", "raw packets")
	m, err := Build([]string{in})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out := filepath.Join(dir, "manifest.json")
	if err := Save(m, out); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got.Items, m.Items) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Items, m.Items)
	}
}
