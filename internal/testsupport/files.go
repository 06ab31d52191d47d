package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// SampleRows is a three-item table: two images and one audio clip.
var SampleRows = [][]string{
	{"asset_id", "type", "filename", "description", "text"},
	{"img_bg", "image", "bg_forest.png", "A forest clearing", ""},
	{"img_star", "image", "ui_star.png", "A gold star", ""},
	{"sfx_pop", "audio", "sfx_pop.wav", "", "pop"},
}

// WriteCSV writes rows (header first) to dir/name and returns the path.
func WriteCSV(t testing.TB, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write csv %s: %v", path, err)
	}
	return path
}
