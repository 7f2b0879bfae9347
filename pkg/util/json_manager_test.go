package util

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestJSONManagerRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data.json")
	m := NewJSONManager(path)

	var empty sample
	if err := m.Load(&empty); err != nil {
		t.Fatalf("load of missing file should succeed, got %v", err)
	}

	in := sample{Name: "rules", Items: []string{"a", "b"}}
	if err := m.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out sample
	if err := m.Load(&out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Name != "rules" || len(out.Items) != 2 {
		t.Fatalf("unexpected round trip result: %+v", out)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the data file, found %d entries", len(entries))
	}
}

func TestJSONManagerLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out sample
	if err := NewJSONManager(path).Load(&out); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}
