package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"assetgen/internal/manifest"
	"assetgen/internal/preflight"
	"assetgen/internal/workspec"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine(statusLine{Label: "State", Tag: "PARTIAL", Detail: "rerun to resume", Tone: tonePending}, false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "State:", "[PARTIAL] rerun to resume")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
	wantInfo := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Path:", "/out")
	if got := renderStatusLine(infoLine("Path", "/out"), false); got != wantInfo {
		t.Fatalf("info line should carry no tag, got %q", got)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine(statusLine{Label: "State", Tag: "COMPLETE", Tone: toneGood}, true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestManifestStatusLines(t *testing.T) {
	success := manifest.Entry{AssetID: "bg_forest", Type: workspec.KindImage, Status: manifest.StatusSuccess}
	failure := manifest.Entry{AssetID: "sfx_pop", Type: workspec.KindAudio, Status: manifest.StatusError, Error: "model offline"}

	tests := []struct {
		name    string
		entries []manifest.Entry
		partial bool
		state   manifestState
		want    []string
	}{
		{name: "complete", entries: []manifest.Entry{success}, state: stateComplete, want: []string{"[COMPLETE]", "1 of 1 generated"}},
		{name: "failures", entries: []manifest.Entry{success, failure}, state: stateFailures, want: []string{"[FAILURES] 1 failed", "0 of 1 generated"}},
		{name: "partial", entries: []manifest.Entry{success, failure}, partial: true, state: statePartial, want: []string{"[PARTIAL]"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.json")
			m := manifest.New()
			for _, e := range tc.entries {
				m.Append(e)
			}
			write := m.Finalize
			if tc.partial {
				write = m.Checkpoint
			}
			if err := write(path); err != nil {
				t.Fatalf("write manifest: %v", err)
			}
			loaded, err := manifest.LoadIfExists(path)
			if err != nil {
				t.Fatalf("load manifest: %v", err)
			}

			if got := classifyManifest(loaded, len(failedEntries(loaded.Latest()))); got != tc.state {
				t.Fatalf("state = %s, want %s", got, tc.state)
			}
			text := strings.Join(renderStatusLines(manifestStatusLines(path, loaded), false), "\n")
			for _, want := range tc.want {
				if !strings.Contains(text, want) {
					t.Fatalf("status missing %q:\n%s", want, text)
				}
			}
		})
	}
}

func TestPreflightStatusLine(t *testing.T) {
	pass := renderStatusLine(preflightStatusLine(preflight.Result{Name: "Output", Passed: true, Detail: "writable"}), false)
	fail := renderStatusLine(preflightStatusLine(preflight.Result{Name: "Backend", Detail: "gen not found"}), false)
	if !strings.Contains(pass, "[PASS] writable") || !strings.Contains(fail, "[FAIL] gen not found") {
		t.Fatalf("unexpected preflight lines %q / %q", pass, fail)
	}
}

func TestKindLabel(t *testing.T) {
	if got := kindLabel(workspec.KindImage); got != "Images" {
		t.Fatalf("image label = %q", got)
	}
	if got := kindLabel(workspec.KindAudio); got != "Audio" {
		t.Fatalf("audio label = %q", got)
	}
}

func TestRenderSummaryTable(t *testing.T) {
	s := manifest.Summary{
		Images:      manifest.KindStats{Total: 2, Success: 1, Error: 1, Time: 3, AverageTime: 3},
		Audio:       manifest.KindStats{Total: 1, Success: 1, Time: 1.5, AverageTime: 1.5},
		TotalTime:   5,
		AverageTime: 2.5,
	}
	table := renderSummaryTable(s)
	for _, want := range []string{"Images", "Audio", "3.00", "2.50"} {
		if !strings.Contains(table, want) {
			t.Fatalf("summary table missing %q:\n%s", want, table)
		}
	}
	// go-pretty upper-cases footer cells.
	if !strings.Contains(table, "TOTAL") {
		t.Fatalf("summary table missing footer row:\n%s", table)
	}
}

func TestRenderFailuresTable(t *testing.T) {
	if renderFailuresTable(nil) != "" {
		t.Fatal("expected empty output without failures")
	}
	table := renderFailuresTable([]manifest.Entry{{
		AssetID: "sfx_pop", Type: workspec.KindAudio, Filename: "sfx_pop.wav",
		Status: manifest.StatusError, Error: "Max retries exceeded", Attempts: 3,
	}})
	requireContains(t, table, "Failed assets (1)")
	requireContains(t, table, "Max retries exceeded")
}
