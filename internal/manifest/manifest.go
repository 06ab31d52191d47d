package manifest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"assetgen/internal/fileutil"
)

// FileName is the manifest's name inside an output directory.
const FileName = "asset_manifest.json"

// Path returns the manifest location for outputDir.
func Path(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

type document struct {
	Summary Summary `json:"summary"`
	Assets  []Entry `json:"assets"`
	Partial bool    `json:"partial"`
}

// Manifest is the in-memory log of entries plus the current summary. It is
// safe for concurrent use; writes to storage are serialized.
type Manifest struct {
	mu      sync.Mutex
	entries []Entry
	summary Summary
	partial bool

	writeMu sync.Mutex
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{}
}

// LoadIfExists reads the manifest at path. A missing file yields an empty
// manifest; an unreadable or unparsable one is an *IOError.
func LoadIfExists(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}
	m := &Manifest{summary: doc.Summary, partial: doc.Partial}
	for _, entry := range doc.Assets {
		if entry.AssetID == "" {
			continue
		}
		m.entries = append(m.entries, entry)
	}
	return m, nil
}

// Append adds entry to the in-memory log. Nothing is written.
func (m *Manifest) Append(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// SetSummary replaces the summary written with the next checkpoint.
func (m *Manifest) SetSummary(s Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = s
}

// Summary returns the current summary.
func (m *Manifest) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Partial reports whether the last loaded or written state was a checkpoint.
func (m *Manifest) Partial() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.partial
}

// Len returns the number of entries, superseded ones included.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns a copy of every entry in append order.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Latest returns the authoritative entry per asset ID, ordered by the
// position of that latest write.
func (m *Manifest) Latest() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return latest(m.entries)
}

func latest(entries []Entry) []Entry {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		last[e.AssetID] = i
	}
	out := make([]Entry, 0, len(last))
	for i, e := range entries {
		if last[e.AssetID] == i {
			out = append(out, e)
		}
	}
	return out
}

// SuccessfulAssetIDs returns the resume set: asset IDs whose latest entry
// is a success.
func (m *Manifest) SuccessfulAssetIDs() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{})
	for _, e := range latest(m.entries) {
		if e.Succeeded() {
			set[e.AssetID] = struct{}{}
		}
	}
	return set
}

// Forget drops every entry for ids and returns the latest entry removed per
// asset. It exists for targeted regeneration; the engine never calls it.
func (m *Manifest) Forget(ids ...string) []Entry {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []Entry
	kept := m.entries[:0]
	for _, e := range latest(m.entries) {
		if _, ok := drop[e.AssetID]; ok {
			removed = append(removed, e)
		}
	}
	for _, e := range m.entries {
		if _, ok := drop[e.AssetID]; ok {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed
}

// Checkpoint writes the full state with partial=true.
func (m *Manifest) Checkpoint(path string) error {
	return m.write(path, true)
}

// Finalize writes the full state with partial=false. Call once per run.
func (m *Manifest) Finalize(path string) error {
	return m.write(path, false)
}

func (m *Manifest) write(path string, partial bool) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	doc := document{Summary: m.summary, Assets: make([]Entry, len(m.entries)), Partial: partial}
	copy(doc.Assets, m.entries)
	m.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}

	m.mu.Lock()
	m.partial = partial
	m.mu.Unlock()
	return nil
}
