package texcache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// captureLogs installs a debug logger writing to the returned buffer for
// the duration of the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	return &buf
}

func TestLoggerDefaultSilent(t *testing.T) {
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelWarn, LevelCritical} {
		if Logger().Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
}

func TestSetLoggerNil(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)
	if l := Logger(); l == nil || l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}

func TestCacheLogsCreation(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)
	if _, err := New(&fakeBackend{}, newFakeMemory(16), nil, nil, WithAccurateEmulation(true)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"texcache: cache created", "accurate=true", fmt.Sprintf("reserve_limit=%d", DefaultReserveLimit)} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
}

func TestLevelCritical(t *testing.T) {
	if LevelCritical <= slog.LevelError {
		t.Fatalf("LevelCritical = %v, want above %v", LevelCritical, slog.LevelError)
	}
	buf := captureLogs(t, slog.LevelError)
	Logger().Log(context.Background(), LevelCritical, "overlapping registration")
	if !strings.Contains(buf.String(), "overlapping registration") {
		t.Errorf("critical record dropped at error level: %q", buf.String())
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Logger().Debug("texcache: probe")
		}()
		go func() {
			defer wg.Done()
			SetLogger(slog.New(nopHandler{}))
			SetLogger(nil)
		}()
	}
	wg.Wait()
}
