package pipeline

// State is the engine's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateLoadingManifest
	StateFiltering
	StateRunningImage
	StateRunningAudio
	StateFinalizing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingManifest:
		return "loading_manifest"
	case StateFiltering:
		return "filtering"
	case StateRunningImage:
		return "running_image"
	case StateRunningAudio:
		return "running_audio"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
