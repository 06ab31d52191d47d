package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"assetgen/internal/manifest"
	"assetgen/internal/runlock"
	"assetgen/internal/testsupport"
)

func TestRunGeneratesAndResumes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", env.specPath, "--output", env.outputDir}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Images")
	requireContains(t, out, "Audio")
	requireContains(t, out, "Skipped (already generated): 0")

	m, err := manifest.LoadIfExists(manifest.Path(env.outputDir))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if got := len(m.SuccessfulAssetIDs()); got != 3 {
		t.Fatalf("expected 3 successful assets, got %d", got)
	}
	if m.Partial() {
		t.Fatal("expected finalized manifest")
	}
	for _, entry := range m.Latest() {
		if _, err := os.Stat(entry.Filepath); err != nil {
			t.Fatalf("missing artifact for %s: %v", entry.AssetID, err)
		}
	}

	logData, err := os.ReadFile(filepath.Join(env.outputDir, DefaultLogName))
	if err != nil {
		t.Fatalf("read generation log: %v", err)
	}
	requireContains(t, string(logData), "generation started")

	out, _, err = runCLI(t, []string{"run", env.specPath, "--output", env.outputDir}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "Skipped (already generated): 3")

	logData, err = os.ReadFile(filepath.Join(env.outputDir, DefaultLogName))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(logData), "generation started"); n != 2 {
		t.Fatalf("expected log appended across runs, found %d starts", n)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "done")
	requireContains(t, out, env.outputDir)
}

func TestRunNoResumeRegenerates(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir, "--no-resume"}, env.configPath)
	if err != nil {
		t.Fatalf("no-resume run: %v", err)
	}
	requireContains(t, out, "Skipped (already generated): 0")
}

func TestRunReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Backend.Command = writeScript(t, env.baseDir, "gen.sh", "echo 'model offline' >&2\nexit 1\n")
	env.cfg.Generation.MaxAttempts = 1
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir, "--backend", "command"}, env.configPath)
	if !errors.Is(err, errIncomplete) {
		t.Fatalf("expected errIncomplete, got %v", err)
	}
	requireContains(t, out, "Failed assets (3)")
	requireContains(t, out, "model offline")

	out, _, err = runCLI(t, []string{"status", env.outputDir}, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[FAILURES] 3 failed")
	requireContains(t, out, "0 of 2 generated")
	requireContains(t, out, "model offline")
}

func TestRunRequiresOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", env.specPath}, env.configPath); err == nil {
		t.Fatal("expected error without --output")
	}
}

func TestRunRejectsMalformedSpec(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := filepath.Join(env.baseDir, "bad.csv")
	if err := os.WriteFile(bad, []byte("asset_id,filename\nx,x.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"run", bad, "-o", env.outputDir}, env.configPath); err == nil {
		t.Fatal("expected malformed input error")
	}
	if _, err := os.Stat(manifest.Path(env.outputDir)); !os.IsNotExist(err) {
		t.Fatalf("expected no manifest after malformed input, got %v", err)
	}
}

func TestRunFailsWhenLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runlock.Acquire(env.outputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath)
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestForgetRemovesEntriesAndFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	m, err := manifest.LoadIfExists(manifest.Path(env.outputDir))
	if err != nil {
		t.Fatal(err)
	}
	var starPath string
	for _, e := range m.Latest() {
		if e.AssetID == "img_star" {
			starPath = e.Filepath
		}
	}

	out, _, err := runCLI(t, []string{"forget", env.outputDir, "img_star", "--delete-files"}, "")
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	requireContains(t, out, "Forgot img_star")
	if _, err := os.Stat(starPath); !os.IsNotExist(err) {
		t.Fatalf("expected %s deleted, got %v", starPath, err)
	}

	m, err = manifest.LoadIfExists(manifest.Path(env.outputDir))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.SuccessfulAssetIDs()["img_star"]; ok {
		t.Fatal("img_star still in resume set")
	}

	out, _, err = runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	requireContains(t, out, "Skipped (already generated): 2")
	if _, err := os.Stat(starPath); err != nil {
		t.Fatalf("expected %s regenerated: %v", starPath, err)
	}
}

func TestForgetUnknownAsset(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, _, err := runCLI(t, []string{"forget", env.outputDir, "nope"}, ""); err == nil {
		t.Fatal("expected error for unknown asset")
	}
}

func TestStatusWithoutManifest(t *testing.T) {
	if _, _, err := runCLI(t, []string{"status", t.TempDir()}, ""); err == nil {
		t.Fatal("expected error for directory without manifest")
	}
}

func TestPreflightCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"preflight", "-o", env.outputDir}, env.configPath)
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, out)
	}
	requireContains(t, out, "State directory")
	requireContains(t, out, `Backend "placeholder"`)
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Backend: placeholder")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote placeholder configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
}

func TestConfigInitWritesBackendStanza(t *testing.T) {
	setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target, "--backend", "http", "--base-url", "http://gen.local:9000"}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote http configuration")
	requireContains(t, out, "ASSETGEN_API_KEY")

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	requireContains(t, string(content), `name = "http"`)
	requireContains(t, string(content), `base_url = "http://gen.local:9000"`)

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Backend: http")
	requireContains(t, out, "Images: http http://gen.local:9000")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", filepath.Join(t.TempDir(), "x.toml"), "--backend", "ftp"}, ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", env.outputDir, "-n", "5"}, "")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "generation complete")
	if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n > 5 {
		t.Fatalf("expected at most 5 lines, got %d", n)
	}

	out, _, err = runCLI(t, []string{"logs", env.outputDir, "--problems"}, "")
	if err != nil {
		t.Fatalf("logs --problems: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no problems in a clean run, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"logs", t.TempDir()}, ""); err == nil {
		t.Fatal("expected error for directory without a log")
	}
}

func TestRunPublishesNotification(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := setupCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = srv.URL
	env.writeConfig(t)

	if _, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err != nil {
		t.Fatalf("test-notify: %v", err)
	} else {
		requireContains(t, out, "Test notification sent")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 2 || titles[0] != "assetgen - Run Complete" || titles[1] != "assetgen - Test" {
		t.Fatalf("unexpected notifications: %v", titles)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistoryDisabled())
	if _, _, err := runCLI(t, []string{"run", env.specPath, "-o", env.outputDir}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(env.cfg.History.Path); !os.IsNotExist(err) {
		t.Fatalf("expected no history database, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"history"}, env.configPath); err == nil {
		t.Fatal("expected history command to fail when disabled")
	}
}
