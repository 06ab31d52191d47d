package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"assetgen/internal/manifest"
	"assetgen/internal/preflight"
	"assetgen/internal/workspec"
)

// tone picks the color of a status line.
type tone int

const (
	toneInfo tone = iota
	toneGood
	tonePending
	toneBad
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// statusLine is one "Label: [TAG] detail" row of status or preflight output.
type statusLine struct {
	Label  string
	Tag    string
	Detail string
	Tone   tone
}

func infoLine(label, detail string) statusLine {
	return statusLine{Label: label, Detail: detail, Tone: toneInfo}
}

func renderStatusLine(line statusLine, colorize bool) string {
	text := line.Detail
	if line.Tag != "" {
		text = strings.TrimSpace(fmt.Sprintf("[%s] %s", line.Tag, line.Detail))
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, line.Label+":", text)
	if colorize {
		if color := toneColor(line.Tone); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func renderStatusLines(lines []statusLine, colorize bool) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, renderStatusLine(line, colorize))
	}
	return out
}

func toneColor(t tone) string {
	switch t {
	case toneGood:
		return ansiGreen
	case tonePending:
		return ansiYellow
	case toneBad:
		return ansiRed
	case toneInfo:
		return ansiBlue
	default:
		return ""
	}
}

// manifestState summarizes where an output directory stands.
type manifestState string

const (
	// stateComplete: finalized and every recorded asset succeeded.
	stateComplete manifestState = "COMPLETE"
	// stateFailures: finalized with failed assets left to retry.
	stateFailures manifestState = "FAILURES"
	// statePartial: a checkpoint from an interrupted or running run.
	statePartial manifestState = "PARTIAL"
)

func classifyManifest(m *manifest.Manifest, failed int) manifestState {
	switch {
	case m.Partial():
		return statePartial
	case failed > 0:
		return stateFailures
	default:
		return stateComplete
	}
}

// manifestStatusLines describes the manifest at path for the status command.
func manifestStatusLines(path string, m *manifest.Manifest) []statusLine {
	latest := m.Latest()
	failures := failedEntries(latest)
	state := classifyManifest(m, len(failures))

	stateLine := statusLine{Label: "State", Tag: string(state)}
	switch state {
	case statePartial:
		stateLine.Tone = tonePending
		stateLine.Detail = "run interrupted or in progress; rerun to resume"
	case stateFailures:
		stateLine.Tone = toneBad
		stateLine.Detail = fmt.Sprintf("%d failed; rerun to retry them", len(failures))
	default:
		stateLine.Tone = toneGood
		stateLine.Detail = "every recorded asset generated"
	}

	lines := []statusLine{infoLine("Path", path), stateLine}
	for _, kind := range workspec.Kinds {
		succeeded, recorded := 0, 0
		for _, e := range latest {
			if e.Type != kind {
				continue
			}
			recorded++
			if e.Succeeded() {
				succeeded++
			}
		}
		line := statusLine{
			Label:  kindLabel(kind),
			Detail: fmt.Sprintf("%d of %d generated", succeeded, recorded),
			Tone:   toneGood,
		}
		if succeeded < recorded {
			line.Tone = toneBad
		}
		lines = append(lines, line)
	}
	lines = append(lines, infoLine("Entries", fmt.Sprintf("%d across runs", m.Len())))
	if runID := m.Summary().RunID; runID != "" {
		lines = append(lines, infoLine("Last run", runID))
	}
	return lines
}

func preflightStatusLine(r preflight.Result) statusLine {
	if r.Passed {
		return statusLine{Label: r.Name, Tag: "PASS", Detail: r.Detail, Tone: toneGood}
	}
	return statusLine{Label: r.Name, Tag: "FAIL", Detail: r.Detail, Tone: toneBad}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeLines(w io.Writer, lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
