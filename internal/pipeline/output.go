package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"assetgen/internal/backend"
	"assetgen/internal/fileutil"
	"assetgen/internal/routing"
	"assetgen/internal/workspec"
)

// OutputWriter places artifacts under the routed directory of an output root.
// Writes to one destination never overlap.
type OutputWriter struct {
	root  string
	locks keyedMutex
}

// NewOutputWriter returns a writer rooted at dir.
func NewOutputWriter(dir string) *OutputWriter {
	return &OutputWriter{root: dir}
}

// Destination returns the final path for item.
func (w *OutputWriter) Destination(item workspec.WorkItem) string {
	return filepath.Join(w.root, filepath.FromSlash(routing.RelativePath(item)))
}

// Place writes in-memory artifacts atomically and moves file artifacts into
// place. It implements executor.Placer.
func (w *OutputWriter) Place(item workspec.WorkItem, artifact backend.Artifact) (string, error) {
	dst := w.Destination(item)
	unlock := w.locks.Lock(dst)
	defer unlock()

	switch {
	case len(artifact.Data) > 0:
		if err := fileutil.WriteFileAtomic(dst, artifact.Data, 0o644); err != nil {
			return "", fmt.Errorf("save %s: %w", item.Filename, err)
		}
	case artifact.Path != "":
		if err := fileutil.MoveFile(artifact.Path, dst); err != nil {
			return "", fmt.Errorf("save %s: %w", item.Filename, err)
		}
	default:
		return "", errors.New("empty artifact")
	}
	return dst, nil
}

// Prepare creates the output root.
func (w *OutputWriter) Prepare() error {
	return os.MkdirAll(w.root, 0o755)
}

// keyedMutex hands out one mutex per key and drops it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
