package backend

import (
	"context"
	"errors"
	"fmt"

	"assetgen/internal/workspec"
)

// Multi routes each request to the backend registered for its kind.
type Multi struct {
	byKind map[workspec.Kind]Backend
}

// NewMulti builds a router. Nil backends are skipped.
func NewMulti(byKind map[workspec.Kind]Backend) *Multi {
	m := &Multi{byKind: make(map[workspec.Kind]Backend, len(byKind))}
	for kind, b := range byKind {
		if b != nil {
			m.byKind[kind] = b
		}
	}
	return m
}

func (m *Multi) Generate(ctx context.Context, req Request) (Artifact, error) {
	b, ok := m.byKind[req.Kind]
	if !ok {
		return Artifact{}, fmt.Errorf("no backend configured for %s assets", req.Kind)
	}
	return b.Generate(ctx, req)
}

// Close closes every registered backend. A backend shared by both kinds is
// closed twice, so implementations must tolerate repeated Close calls.
func (m *Multi) Close() error {
	var errs []error
	for _, kind := range workspec.Kinds {
		if b, ok := m.byKind[kind]; ok {
			if err := b.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
