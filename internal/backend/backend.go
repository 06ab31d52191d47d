package backend

import (
	"context"
	"errors"

	"assetgen/internal/workspec"
)

// Request is one generation call. Payload is passed through verbatim.
type Request struct {
	AssetID  string
	Kind     workspec.Kind
	Filename string
	Payload  map[string]string
	Attempt  int
}

// RequestFor builds the request for item.
func RequestFor(item workspec.WorkItem, attempt int) Request {
	return Request{
		AssetID:  item.AssetID,
		Kind:     item.Kind,
		Filename: item.Filename,
		Payload:  item.Payload,
		Attempt:  attempt,
	}
}

// Value returns a payload cell or fallback.
func (r Request) Value(key, fallback string) string {
	if v, ok := r.Payload[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Artifact is generated output. Exactly one of Data or Path is set; Path
// names a file the caller takes ownership of.
type Artifact struct {
	Data        []byte
	Path        string
	ContentType string
	Duration    float64
}

// Empty reports whether the artifact carries no output.
func (a Artifact) Empty() bool {
	return len(a.Data) == 0 && a.Path == ""
}

// Backend generates one artifact per call.
type Backend interface {
	Generate(ctx context.Context, req Request) (Artifact, error)
	Close() error
}

// Func adapts a function to Backend.
type Func func(ctx context.Context, req Request) (Artifact, error)

func (f Func) Generate(ctx context.Context, req Request) (Artifact, error) { return f(ctx, req) }

func (f Func) Close() error { return nil }

// ErrTransient marks a single failed attempt that may be retried.
var ErrTransient = errors.New("transient backend failure")

// TransientError wraps one attempt's failure. Its message is the wrapped
// error's message unchanged so it can be recorded verbatim.
type TransientError struct {
	Attempt int
	Err     error
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return ErrTransient.Error()
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// ErrorKind classifies the error for exit reporting.
func (e *TransientError) ErrorKind() string { return "transient" }

// Transient wraps err as a TransientError for attempt.
func Transient(attempt int, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Attempt: attempt, Err: err}
}
