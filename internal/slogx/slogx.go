package slogx

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ChanWriter turns a handler's output into one channel message per log line.
// Lines are dropped when the channel is full, so a slow drain never stalls a worker.
type ChanWriter struct {
	Ch  chan<- string
	Buf []byte
}

func (w *ChanWriter) Write(p []byte) (int, error) {
	w.Buf = append(w.Buf, p...)
	for {
		line, rest, ok := bytes.Cut(w.Buf, []byte{'\n'})
		if !ok {
			return len(p), nil
		}
		select {
		case w.Ch <- string(line):
		default:
		}
		w.Buf = rest
	}
}

// NewChanLogger creates a logger that writes text lines to ch at the given level.
func NewChanLogger(ch chan<- string, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(&ChanWriter{Ch: ch}, &slog.HandlerOptions{Level: level}))
}

// ParseLevel accepts the slog level names (any case, with optional offset like
// "info+2") plus "warning". Anything else is info.
func ParseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New creates a logger writing to w. format is "json" or text (anything else).
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDefault creates a text logger on stderr with the given level.
func NewDefault(level string) *slog.Logger {
	return New(os.Stderr, level, "text")
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
