package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	scanBufferSize = 64 * 1024
	maxLineSize    = 1024 * 1024
	// DefaultPoll is how often Follow checks for new lines.
	DefaultPoll = 250 * time.Millisecond
)

// Filter selects lines. The zero value keeps everything.
type Filter struct {
	// AssetID keeps lines tagged "[<AssetID>]".
	AssetID string
	// Problems keeps only WARNING and ERROR lines.
	Problems bool
}

// Match reports whether line passes the filter.
func (f Filter) Match(line string) bool {
	if f.AssetID != "" && !strings.Contains(line, "["+f.AssetID+"]") {
		return false
	}
	if f.Problems && !strings.Contains(line, " - WARNING - ") && !strings.Contains(line, " - ERROR - ") {
		return false
	}
	return true
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scanBufferSize), maxLineSize)
	return scanner
}

// Last returns up to n matching lines from the end of path and the offset
// of the end of file. A missing file yields no lines and offset 0.
func Last(path string, n int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	} else if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	var ring []string
	if n > 0 {
		ring = make([]string, 0, n)
	}
	start := 0
	scanner := newScanner(file)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		line := scanner.Text()
		if !filter.Match(line) {
			continue
		}
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		ring[start] = line
		start = (start + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return lines, offset, nil
}

// ReadFrom returns the complete lines written after offset and the offset
// just past them. A partial trailing line is left for the next call. An
// offset beyond the end of file (the log was replaced) restarts at 0.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, scanBufferSize)
	var lines []string
	for {
		chunk, err := reader.ReadString('\n')
		if err == io.EOF {
			return lines, offset, nil
		}
		if err != nil {
			return lines, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(chunk))
		lines = append(lines, strings.TrimRight(chunk, "\r\n"))
	}
}

// Follow polls path from offset and hands each matching new line to emit
// until ctx is done. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, filter Filter, emit func(string)) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		lines, next, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		for _, line := range lines {
			if filter.Match(line) {
				emit(line)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
