package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary reported, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
}

func TestResolveUsesPath(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "fake-generator")
	t.Setenv("PATH", dir)

	path, err := Resolve(Requirement{Name: "Generator", Command: "fake-generator"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if path != filepath.Join(dir, "fake-generator") {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := Resolve(Requirement{Name: "Other", Command: "not-here"}); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Name: "ok", Available: true},
		{Name: "opt", Optional: true, Detail: "gone"},
		{Name: "req", Detail: "binary \"x\" not found"},
	}
	err := Missing(statuses)
	if err == nil || !strings.Contains(err.Error(), "req") || strings.Contains(err.Error(), "opt") {
		t.Fatalf("unexpected Missing error: %v", err)
	}
	if Missing(statuses[:2]) != nil {
		t.Fatal("expected nil when only optional deps are missing")
	}
}
