// Package logging holds the logger shared by every sprout package.
//
// By default nothing is logged. The CLI installs a real handler with Set.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled returns false so callers skip
// attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(nopHandler{}))
}

// Set replaces the shared logger. Passing nil restores the silent default.
// Safe for concurrent use.
func Set(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	current.Store(l)
}

// L returns the shared logger.
func L() *slog.Logger {
	return current.Load()
}
