package pipeline

import "errors"

// ErrAborted is returned when a run stops early because its context was
// cancelled.
var ErrAborted = errors.New("run aborted")

// ErrorClassifier is implemented by errors that declare their category.
type ErrorClassifier interface {
	ErrorKind() string
}

// Error kinds reported by Classify.
const (
	KindMalformedInput = "malformed_input"
	KindManifestIO     = "manifest_io"
	KindAborted        = "aborted"
	KindTerminal       = "terminal"
	KindTransient      = "transient"
	KindUnknown        = "unknown"
)

// Classify maps a run error to its kind.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAborted) {
		return KindAborted
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return KindUnknown
}
