// Package routing maps work items to their output subdirectories.
package routing

import (
	"path"
	"strings"

	"assetgen/internal/workspec"
)

// Output subdirectories relative to the run's output directory.
const (
	DirImageBackgrounds = "images/backgrounds"
	DirImageUI          = "images/ui"
	DirImageContainers  = "images/containers"
	DirImageObjects     = "images/objects"
	DirAudio            = "audio"
	DirAudioVoiceovers  = "audio/voiceovers"
	DirAudioEffects     = "audio/sound_effects"
	DirAudioMusic       = "audio/music"
)

// RouteDirectory returns the slash-separated subdirectory for kind and
// filename. Rules are checked in a fixed order and the first match wins.
// Substring rules ignore case; prefix rules compare the filename as written.
func RouteDirectory(kind workspec.Kind, filename string) string {
	switch kind {
	case workspec.KindImage:
		return routeImage(filename)
	case workspec.KindAudio:
		return routeAudio(filename)
	default:
		return string(kind)
	}
}

// Route is RouteDirectory for a work item.
func Route(item workspec.WorkItem) string {
	return RouteDirectory(item.Kind, item.Filename)
}

// RelativePath joins the routed directory with the item's filename.
func RelativePath(item workspec.WorkItem) string {
	return path.Join(Route(item), item.Filename)
}

func routeImage(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "background") || strings.HasPrefix(filename, "bg"):
		return DirImageBackgrounds
	case strings.Contains(lower, "button") || strings.Contains(lower, "icon") || strings.HasPrefix(filename, "ui"):
		return DirImageUI
	case strings.Contains(lower, "container"):
		return DirImageContainers
	default:
		return DirImageObjects
	}
}

func routeAudio(filename string) string {
	switch {
	case strings.HasPrefix(filename, "vo"):
		return DirAudioVoiceovers
	case strings.HasPrefix(filename, "sfx"):
		return DirAudioEffects
	case strings.HasPrefix(filename, "mus"):
		return DirAudioMusic
	default:
		return DirAudio
	}
}

// Directories lists every directory a run may write into.
func Directories() []string {
	return []string{
		DirImageBackgrounds, DirImageUI, DirImageContainers, DirImageObjects,
		DirAudio, DirAudioVoiceovers, DirAudioEffects, DirAudioMusic,
	}
}
