package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled because one handler accepts it")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Fatalf("info handler should not receive debug records, got %s", infoBuf.String())
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler should receive debug records")
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("run_id", "r1")}).WithGroup("item"))
	logger.Info("tested", slog.String("asset_id", "a1"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"run_id":"r1"`)) {
			t.Fatalf("buffer %d missing run attribute: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"item":{"asset_id":"a1"}`)) {
			t.Fatalf("buffer %d missing grouped attribute: %s", i, buf.String())
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	logger := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("teed message")

	if baseBuf.Len() == 0 || teeBuf.Len() == 0 {
		t.Fatalf("expected output in both buffers: base=%q tee=%q", baseBuf.String(), teeBuf.String())
	}

	teeBuf.Reset()
	TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil)).Info("no base")
	if teeBuf.Len() == 0 {
		t.Fatal("expected output with nil base")
	}
}
