package manifest

import (
	"time"

	"assetgen/internal/workspec"
)

// Status is the terminal outcome of one work item.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FallbackError is recorded when retries run out without a concrete error.
const FallbackError = "Max retries exceeded"

// Entry records one attempt outcome. Filepath is set iff Status is success;
// Error is set iff Status is error.
type Entry struct {
	AssetID        string        `json:"asset_id"`
	Type           workspec.Kind `json:"type"`
	Filename       string        `json:"filename"`
	Status         Status        `json:"status"`
	Filepath       string        `json:"filepath,omitempty"`
	Error          string        `json:"error,omitempty"`
	GenerationTime float64       `json:"generation_time"`
	Attempts       int           `json:"attempts,omitempty"`
	RunID          string        `json:"run_id,omitempty"`
	RecordedAt     time.Time     `json:"recorded_at,omitzero"`
}

// Succeeded reports whether the entry is a success.
func (e Entry) Succeeded() bool { return e.Status == StatusSuccess }

// NewSuccess builds a success entry for item.
func NewSuccess(item workspec.WorkItem, path string, elapsed time.Duration) Entry {
	return Entry{
		AssetID:        item.AssetID,
		Type:           item.Kind,
		Filename:       item.Filename,
		Status:         StatusSuccess,
		Filepath:       path,
		GenerationTime: elapsed.Seconds(),
		RecordedAt:     time.Now().UTC(),
	}
}

// NewFailure builds an error entry for item, carrying message verbatim.
func NewFailure(item workspec.WorkItem, message string, elapsed time.Duration) Entry {
	if message == "" {
		message = FallbackError
	}
	return Entry{
		AssetID:        item.AssetID,
		Type:           item.Kind,
		Filename:       item.Filename,
		Status:         StatusError,
		Error:          message,
		GenerationTime: elapsed.Seconds(),
		RecordedAt:     time.Now().UTC(),
	}
}
