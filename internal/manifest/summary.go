package manifest

import (
	"time"

	"assetgen/internal/workspec"
)

// KindStats aggregates outcomes for one kind. Total is the planned count;
// Time and AverageTime cover successful items only.
type KindStats struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Error       int     `json:"error"`
	Time        float64 `json:"time"`
	AverageTime float64 `json:"average_time"`
}

// Summary aggregates a run. Times are in seconds. AverageTime is wall-clock
// run time per successful asset.
type Summary struct {
	RunID       string     `json:"run_id,omitempty"`
	Images      KindStats  `json:"images"`
	Audio       KindStats  `json:"audio"`
	Total       int        `json:"total"`
	TotalTime   float64    `json:"total_time"`
	AverageTime float64    `json:"average_time"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// Stats returns the bucket for kind.
func (s *Summary) Stats(kind workspec.Kind) *KindStats {
	if kind == workspec.KindAudio {
		return &s.Audio
	}
	return &s.Images
}

// Succeeded is the success count across kinds.
func (s Summary) Succeeded() int { return s.Images.Success + s.Audio.Success }

// Failed is the error count across kinds.
func (s Summary) Failed() int { return s.Images.Error + s.Audio.Error }

// Processed is the number of items with a recorded outcome.
func (s Summary) Processed() int { return s.Succeeded() + s.Failed() }

// Plan records how many items of kind the run will attempt.
func (s *Summary) Plan(kind workspec.Kind, n int) {
	s.Stats(kind).Total += n
	s.Total += n
}

// Add folds one outcome into the summary.
func (s *Summary) Add(entry Entry) {
	stats := s.Stats(entry.Type)
	if entry.Succeeded() {
		stats.Success++
		stats.Time += entry.GenerationTime
	} else {
		stats.Error++
	}
	s.recompute()
}

func (s *Summary) recompute() {
	for _, stats := range []*KindStats{&s.Images, &s.Audio} {
		stats.AverageTime = 0
		if stats.Success > 0 {
			stats.AverageTime = stats.Time / float64(stats.Success)
		}
	}
	s.AverageTime = 0
	if n := s.Succeeded(); n > 0 {
		s.AverageTime = s.TotalTime / float64(n)
	}
}

// MarkStart stamps the run start.
func (s *Summary) MarkStart(t time.Time) {
	t = t.UTC()
	s.StartTime = &t
}

// MarkEnd stamps the run end and derives TotalTime from the start.
func (s *Summary) MarkEnd(t time.Time) {
	t = t.UTC()
	s.EndTime = &t
	if s.StartTime != nil {
		s.TotalTime = t.Sub(*s.StartTime).Seconds()
	}
	s.recompute()
}

// Summarize builds a summary over entries, planning one item per entry.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		s.Plan(e.Type, 1)
		s.Add(e)
	}
	return s
}
