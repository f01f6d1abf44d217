package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func closeIf(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func TestNew_StderrWithoutFile(t *testing.T) {
	log, closer := New(Config{Level: "debug"})
	if log == nil {
		t.Fatal("expected a logger")
	}
	if closer != nil {
		t.Fatal("stderr logging must not return a closer")
	}
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level not applied")
	}
}

func TestNew_FileWithRotationDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobseek.log")

	log, closer := New(Config{File: path})
	if closer == nil {
		t.Fatal("file logging must return a closer")
	}
	defer closeIf(closer)

	w, ok := closer.(*lj.Logger)
	if !ok {
		t.Fatalf("writer is not lumberjack.Logger: %T", closer)
	}
	if w.MaxSize != DefaultMaxSizeMB || w.MaxBackups != DefaultMaxBackups || w.MaxAge != DefaultMaxAgeDays {
		t.Fatalf("unexpected defaults: size=%d backups=%d age=%d", w.MaxSize, w.MaxBackups, w.MaxAge)
	}

	log.Info("hello", "k", "v")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created at %s: %v", path, err)
	}
}

func TestNew_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	_, closer := New(Config{
		File:       filepath.Join(dir, "jobseek.log"),
		MaxSizeMB:  1,
		MaxBackups: 9,
		MaxAgeDays: 11,
		Compress:   true,
	})
	defer closeIf(closer)

	w := closer.(*lj.Logger)
	if w.MaxSize != 1 || w.MaxBackups != 9 || w.MaxAge != 11 || !w.Compress {
		t.Fatalf("unexpected overrides: size=%d backups=%d age=%d compress=%t",
			w.MaxSize, w.MaxBackups, w.MaxAge, w.Compress)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
