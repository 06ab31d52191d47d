package manifest_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"assetgen/internal/manifest"
	"assetgen/internal/workspec"
)

func item(id string, kind workspec.Kind) workspec.WorkItem {
	return workspec.WorkItem{AssetID: id, Kind: kind, Filename: id + ".bin"}
}

func TestLoadIfExistsMissingFile(t *testing.T) {
	m, err := manifest.LoadIfExists(filepath.Join(t.TempDir(), manifest.FileName))
	if err != nil {
		t.Fatalf("LoadIfExists returned error: %v", err)
	}
	if m.Len() != 0 || len(m.SuccessfulAssetIDs()) != 0 {
		t.Fatalf("expected empty manifest, got %d entries", m.Len())
	}
}

func TestLoadIfExistsRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), manifest.FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := manifest.LoadIfExists(path)
	var ioErr *manifest.IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "parse" {
		t.Fatalf("expected parse IOError, got %v", err)
	}
}

func TestLatestEntryIsAuthoritative(t *testing.T) {
	m := manifest.New()
	m.Append(manifest.NewFailure(item("a", workspec.KindImage), "boom", time.Second))
	m.Append(manifest.NewSuccess(item("b", workspec.KindImage), "/out/b.bin", time.Second))
	m.Append(manifest.NewSuccess(item("a", workspec.KindImage), "/out/a.bin", time.Second))
	m.Append(manifest.NewFailure(item("b", workspec.KindImage), "regressed", time.Second))

	ids := m.SuccessfulAssetIDs()
	if _, ok := ids["a"]; !ok {
		t.Fatal("expected a in resume set after later success")
	}
	if _, ok := ids["b"]; ok {
		t.Fatal("expected b excluded after later failure")
	}

	latest := m.Latest()
	if len(latest) != 2 || latest[0].AssetID != "a" || latest[1].AssetID != "b" {
		t.Fatalf("unexpected latest ordering: %+v", latest)
	}
	if latest[1].Error != "regressed" {
		t.Fatalf("expected latest b entry, got %+v", latest[1])
	}
	if m.Len() != 4 {
		t.Fatalf("expected all 4 entries retained, got %d", m.Len())
	}
}

func TestNewFailureFallbackMessage(t *testing.T) {
	e := manifest.NewFailure(item("a", workspec.KindAudio), "", 0)
	if e.Error != manifest.FallbackError || e.Filepath != "" || e.Status != manifest.StatusError {
		t.Fatalf("unexpected failure entry: %+v", e)
	}
}

func TestCheckpointAndFinalizeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", manifest.FileName)
	m := manifest.New()
	m.Append(manifest.NewSuccess(item("img", workspec.KindImage), "/out/img.bin", 2*time.Second))
	m.Append(manifest.NewFailure(item("snd", workspec.KindAudio), "CUDA out of memory", time.Second))
	m.SetSummary(manifest.Summarize(m.Entries()))

	if err := m.Checkpoint(path); err != nil {
		t.Fatalf("Checkpoint returned error: %v", err)
	}
	raw := readDocument(t, path)
	if raw["partial"] != true {
		t.Fatalf("expected partial=true after checkpoint, got %v", raw["partial"])
	}

	if err := m.Finalize(path); err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	raw = readDocument(t, path)
	if raw["partial"] != false {
		t.Fatalf("expected partial=false after finalize, got %v", raw["partial"])
	}

	loaded, err := manifest.LoadIfExists(path)
	if err != nil {
		t.Fatalf("LoadIfExists returned error: %v", err)
	}
	if loaded.Partial() {
		t.Fatal("expected loaded manifest to be final")
	}
	entries := loaded.Entries()
	if len(entries) != 2 || entries[1].Error != "CUDA out of memory" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	summary := loaded.Summary()
	if summary.Images.Success != 1 || summary.Audio.Error != 1 || summary.Total != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCheckpointSurvivesSimulatedCrash(t *testing.T) {
	dir := t.TempDir()
	path := manifest.Path(dir)
	m := manifest.New()
	for _, id := range []string{"a", "b", "c"} {
		m.Append(manifest.NewSuccess(item(id, workspec.KindImage), filepath.Join(dir, id), time.Second))
	}
	if err := m.Checkpoint(path); err != nil {
		t.Fatal(err)
	}
	// A crash mid-write leaves only a stray temp file beside the manifest.
	stray := filepath.Join(dir, "."+manifest.FileName+".tmp-crash")
	if err := os.WriteFile(stray, []byte(`{"assets": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	m.Append(manifest.NewSuccess(item("d", workspec.KindImage), filepath.Join(dir, "d"), time.Second))

	loaded, err := manifest.LoadIfExists(path)
	if err != nil {
		t.Fatalf("LoadIfExists after crash returned error: %v", err)
	}
	ids := loaded.SuccessfulAssetIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 checkpointed successes, got %v", ids)
	}
	if _, ok := ids["d"]; ok {
		t.Fatal("unpersisted entry must not appear after crash")
	}
}

func TestCheckpointWriteFailureIsIOError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := manifest.New().Checkpoint(filepath.Join(blocker, manifest.FileName))
	var ioErr *manifest.IOError
	if !errors.As(err, &ioErr) || ioErr.ErrorKind() != "manifest_io" {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestForgetRemovesEveryEntryForID(t *testing.T) {
	m := manifest.New()
	m.Append(manifest.NewFailure(item("a", workspec.KindImage), "first", 0))
	m.Append(manifest.NewSuccess(item("a", workspec.KindImage), "/a", 0))
	m.Append(manifest.NewSuccess(item("b", workspec.KindAudio), "/b", 0))

	removed := m.Forget("a", "missing")
	if len(removed) != 1 || removed[0].Filepath != "/a" {
		t.Fatalf("expected latest a entry returned, got %+v", removed)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", m.Len())
	}
	if _, ok := m.SuccessfulAssetIDs()["a"]; ok {
		t.Fatal("forgotten asset must leave the resume set")
	}
}

func TestConcurrentAppendAndCheckpoint(t *testing.T) {
	path := manifest.Path(t.TempDir())
	m := manifest.New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			m.Append(manifest.NewSuccess(item(id, workspec.KindImage), "/"+id, 0))
			if err := m.Checkpoint(path); err != nil {
				t.Errorf("checkpoint: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := m.Checkpoint(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := manifest.LoadIfExists(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.SuccessfulAssetIDs()) != 20 {
		t.Fatalf("expected 20 entries, got %d", loaded.Len())
	}
}

func TestSummaryAverages(t *testing.T) {
	var s manifest.Summary
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.MarkStart(start)
	s.Plan(workspec.KindImage, 3)
	s.Plan(workspec.KindAudio, 1)
	s.Add(manifest.Entry{Type: workspec.KindImage, Status: manifest.StatusSuccess, GenerationTime: 4})
	s.Add(manifest.Entry{Type: workspec.KindImage, Status: manifest.StatusSuccess, GenerationTime: 2})
	s.Add(manifest.Entry{Type: workspec.KindImage, Status: manifest.StatusError, GenerationTime: 7})
	s.Add(manifest.Entry{Type: workspec.KindAudio, Status: manifest.StatusSuccess, GenerationTime: 6})
	s.MarkEnd(start.Add(90 * time.Second))

	if s.Images.Total != 3 || s.Audio.Total != 1 || s.Total != 4 {
		t.Fatalf("unexpected planned totals: %+v", s)
	}
	if s.Images.Time != 6 || s.Images.AverageTime != 3 || s.Audio.AverageTime != 6 {
		t.Fatalf("unexpected per-kind averages: %+v", s)
	}
	if s.TotalTime != 90 || s.AverageTime != 30 {
		t.Fatalf("unexpected overall timing: total=%v avg=%v", s.TotalTime, s.AverageTime)
	}
	if s.Succeeded() != 3 || s.Failed() != 1 || s.Processed() != 4 {
		t.Fatalf("unexpected counts: %+v", s)
	}
}

func readDocument(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	for _, key := range []string{"summary", "assets", "partial"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("manifest missing %q key", key)
		}
	}
	return raw
}
