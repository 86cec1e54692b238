package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFitHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name      string
		sessionID string
		level     slog.Level
		message   string
		attrs     []slog.Attr
		want      string
	}{
		{
			name:      "basic info message",
			sessionID: "20240615T143045Z",
			level:     slog.LevelInfo,
			message:   "session finished",
			want:      "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\tsession finished\n",
		},
		{
			name:      "debug level",
			sessionID: "s-2",
			level:     slog.LevelDebug,
			message:   "cache miss",
			want:      "2024-06-15T14:30:45Z\tDEBUG\ts-2\tcache miss\n",
		},
		{
			name:      "with record attrs",
			sessionID: "s-3",
			level:     slog.LevelError,
			message:   "load crew failed",
			attrs:     []slog.Attr{slog.String("kind", "remote_failure"), slog.Int("attempt", 2)},
			want:      "2024-06-15T14:30:45Z\tERROR\ts-3\tload crew failed\tkind=remote_failure\tattempt=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &fitHandler{w: &buf, sessionID: tt.sessionID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestFitHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &fitHandler{w: &buf, sessionID: "s-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "cache")}).(*fitHandler)

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "write", 0)
	r.AddAttrs(slog.String("key", "profile_cache"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=cache\tkey=profile_cache\n") {
		t.Errorf("expected preset attr before record attr, got: %q", got)
	}
}

func TestFitHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := &fitHandler{sessionID: "s-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*fitHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestFitHandler_Enabled(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Leveler
		check slog.Level
		want  bool
	}{
		{name: "no level accepts debug", level: nil, check: slog.LevelDebug, want: true},
		{name: "warn rejects info", level: slog.LevelWarn, check: slog.LevelInfo, want: false},
		{name: "warn accepts warn", level: slog.LevelWarn, check: slog.LevelWarn, want: true},
		{name: "warn accepts error", level: slog.LevelWarn, check: slog.LevelError, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fitHandler{level: tt.level}
			if got := h.Enabled(context.Background(), tt.check); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestFanout(t *testing.T) {
	var all, warn bytes.Buffer
	logger := slog.New(fanout{
		&fitHandler{w: &all, sessionID: "s"},
		&fitHandler{w: &warn, level: slog.LevelWarn, sessionID: "s"},
	}).With("component", "crew")

	logger.Info("loaded")
	logger.Warn("search degraded")

	if got := strings.Count(all.String(), "\n"); got != 2 {
		t.Errorf("unfiltered handler got %d lines, want 2: %q", got, all.String())
	}
	if got := warn.String(); strings.Contains(got, "loaded") || !strings.Contains(got, "search degraded\tcomponent=crew") {
		t.Errorf("warn handler output = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-session", slog.LevelError)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hello", "n", 1)
	if err := f.Close(); err != nil {
		t.Fatalf("closing log file: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "fitsync.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\tINFO\ttest-session\thello\tn=1\n") {
		t.Errorf("log file = %q", data)
	}
}
