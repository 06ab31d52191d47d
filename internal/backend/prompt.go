package backend

import (
	"strconv"
	"strings"
)

// Defaults applied when a work item leaves a payload cell empty.
const (
	DefaultStyle      = "educational"
	DefaultVoice      = "v2/en_speaker_6"
	DefaultDimension  = 512
	DefaultSampleRate = 24000
)

// ImagePrompt shapes an image description for the requested style.
func ImagePrompt(description, style string) string {
	description = strings.TrimSpace(description)
	switch strings.TrimSpace(style) {
	case "", "educational":
		return description + ", simple clean design, child-friendly cartoon style, educational illustration, white background, centered, high contrast"
	case "realistic":
		return description + ", photorealistic, high quality, soft lighting, calming atmosphere"
	case "flat":
		return description + ", flat design, modern UI, clean vector style, minimalist"
	default:
		return description + ", " + strings.TrimSpace(style) + " style"
	}
}

// AudioText returns the text to speak, preferring the text column.
func AudioText(req Request) string {
	return req.Value("text", req.Value("description", ""))
}

// Dimension parses a positive integer payload cell, falling back when absent
// or invalid.
func Dimension(req Request, key string, fallback int) int {
	raw := strings.TrimSpace(req.Value(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
