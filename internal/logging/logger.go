// Package logging 提供全局使用的结构化日志。
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w with timestamps and caller reporting enabled.
// The writer defaults to [os.Stderr]; an unknown level falls back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Setup 创建 logger 并设置为包级默认 logger，供 log.Info 等直接调用使用。
func Setup(w io.Writer, level string, prefix string) *log.Logger {
	l := New(w, level)
	if prefix != "" {
		l.SetPrefix(prefix)
	}
	log.SetDefault(l)
	return l
}

// With creates a child logger with the given key-value pairs added to all entries.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}
