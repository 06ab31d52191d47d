package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"assetgen/internal/manifest"
	"assetgen/internal/workspec"
)

var kindTitle = cases.Title(language.English)

func kindLabel(kind workspec.Kind) string {
	switch kind {
	case workspec.KindImage:
		return kindTitle.String("images")
	default:
		return kindTitle.String(string(kind))
	}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderSummaryTable(s manifest.Summary) string {
	rows := make([][]string, 0, len(workspec.Kinds))
	var planned int
	for _, kind := range workspec.Kinds {
		stats := s.Stats(kind)
		planned += stats.Total
		rows = append(rows, []string{
			kindLabel(kind),
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Success),
			strconv.Itoa(stats.Error),
			seconds(stats.Time),
			seconds(stats.AverageTime),
		})
	}
	return renderTable(tableSpec{
		Headers: []string{"Kind", "Planned", "Success", "Error", "Time (s)", "Avg (s)"},
		Rows:    rows,
		Footer: []string{
			"Total",
			strconv.Itoa(planned),
			strconv.Itoa(s.Succeeded()),
			strconv.Itoa(s.Failed()),
			seconds(s.TotalTime),
			seconds(s.AverageTime),
		},
		Aligns: []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	})
}

func renderFailuresTable(failures []manifest.Entry) string {
	if len(failures) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(failures))
	for _, entry := range failures {
		attempts := ""
		if entry.Attempts > 0 {
			attempts = strconv.Itoa(entry.Attempts)
		}
		rows = append(rows, []string{
			entry.AssetID,
			string(entry.Type),
			entry.Filename,
			attempts,
			entry.Error,
		})
	}
	return renderTable(tableSpec{
		Title:   fmt.Sprintf("Failed assets (%d)", len(failures)),
		Headers: []string{"Asset", "Kind", "Filename", "Attempts", "Error"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	})
}

// writeRunReport prints the summary and failure tables.
func writeRunReport(w io.Writer, s manifest.Summary, failures []manifest.Entry) {
	fmt.Fprintln(w, renderSummaryTable(s))
	if table := renderFailuresTable(failures); table != "" {
		fmt.Fprintln(w, table)
	}
}

func failedEntries(entries []manifest.Entry) []manifest.Entry {
	var out []manifest.Entry
	for _, e := range entries {
		if !e.Succeeded() {
			out = append(out, e)
		}
	}
	return out
}

func joinIDs(entries []manifest.Entry) string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AssetID)
	}
	return strings.Join(ids, ", ")
}
