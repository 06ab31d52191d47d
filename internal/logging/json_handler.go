package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler writes the per-run event log: one object per record with a
// UTC "ts", a lower-case level and durations in seconds. A logged error that
// classifies itself also gets an error_kind field.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceEventAttr,
	}
	return &eventHandler{inner: slog.NewJSONHandler(w, &opts)}, nil
}

func replaceEventAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
		return attr
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
		return attr
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
		return attr
	}
	switch attr.Value.Kind() {
	case slog.KindDuration:
		attr.Value = slog.Float64Value(attr.Value.Duration().Seconds())
	case slog.KindTime:
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
	}
	return attr
}

type eventHandler struct {
	inner slog.Handler
}

func (h *eventHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *eventHandler) Handle(ctx context.Context, record slog.Record) error {
	if kind := recordErrorKind(record); kind != "" {
		record = record.Clone()
		record.AddAttrs(slog.String(FieldErrorKind, kind))
	}
	return h.inner.Handle(ctx, record)
}

func (h *eventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &eventHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *eventHandler) WithGroup(name string) slog.Handler {
	return &eventHandler{inner: h.inner.WithGroup(name)}
}

func recordErrorKind(record slog.Record) string {
	var kind string
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == FieldErrorKind {
			kind = ""
			return false
		}
		if attr.Key != "error" {
			return true
		}
		if err, ok := attr.Value.Resolve().Any().(error); ok {
			kind = errorKind(err)
		}
		return true
	})
	return kind
}

func errorKind(err error) string {
	var classified interface{ ErrorKind() string }
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}
	return ""
}
