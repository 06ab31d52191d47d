package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"assetgen/internal/backend"
)

// StubBackend is a scriptable backend. By default every call succeeds with a
// small in-memory artifact.
type StubBackend struct {
	mu sync.Mutex
	// FailFirst makes the first n calls for an asset ID fail.
	FailFirst map[string]int
	// AlwaysFail makes every call for an asset ID fail with the given message.
	AlwaysFail map[string]string
	// Before runs at the start of each call, e.g. to cancel a context.
	Before func(req backend.Request)

	calls  map[string]int
	order  []string
	closed int
}

// NewStubBackend returns a backend that always succeeds.
func NewStubBackend() *StubBackend {
	return &StubBackend{FailFirst: map[string]int{}, AlwaysFail: map[string]string{}}
}

func (s *StubBackend) Generate(ctx context.Context, req backend.Request) (backend.Artifact, error) {
	if s.Before != nil {
		s.Before(req)
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[req.AssetID]++
	n := s.calls[req.AssetID]
	s.order = append(s.order, req.AssetID)
	failFirst := s.FailFirst[req.AssetID]
	msg, alwaysFail := s.AlwaysFail[req.AssetID]
	s.mu.Unlock()

	if alwaysFail {
		return backend.Artifact{}, errors.New(msg)
	}
	if n <= failFirst {
		return backend.Artifact{}, fmt.Errorf("transient failure %d for %s", n, req.AssetID)
	}
	return backend.Artifact{Data: []byte(string(req.Kind) + ":" + req.AssetID)}, nil
}

func (s *StubBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Calls returns how often assetID was generated.
func (s *StubBackend) Calls(assetID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[assetID]
}

// TotalCalls returns the number of Generate calls.
func (s *StubBackend) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Order returns asset IDs in call order.
func (s *StubBackend) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Closed returns how often Close was called.
func (s *StubBackend) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
