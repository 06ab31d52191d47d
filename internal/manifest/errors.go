package manifest

import "fmt"

// IOError reports a manifest read or write failure. Writes that fail must
// abort the run: continuing would lose resumability.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for exit reporting.
func (e *IOError) ErrorKind() string { return "manifest_io" }
