package texcache

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LevelCritical marks invariant violations the cache recovers from but
// which indicate a bug in the caller or the cache itself.
const LevelCritical = slog.LevelError + 4

// nopHandler drops every record. Enabled reports false so callers skip
// building attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var silent = slog.New(nopHandler{})

// current is read on every log call and swapped by SetLogger.
var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(silent)
}

// SetLogger routes the log output of texcache, its backends and guestmem
// to l. Logging is off until SetLogger is called; nil turns it off again.
// It may be called concurrently with cache operations.
//
// Levels:
//   - [slog.LevelDebug]: recycle strategies, rebuilds, reconstructions, host copies
//   - [slog.LevelInfo]: cache and backend lifecycle
//   - [slog.LevelWarn]: recoverable guest errors such as unmapped registrations
//   - [LevelCritical]: internal invariant violations
//
// Example:
//
//	texcache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the logger installed by SetLogger.
func Logger() *slog.Logger {
	return current.Load()
}
