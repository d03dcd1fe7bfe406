package slogx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo+2, ParseLevel("info+2"))
}

func TestChanLogger_SplitsLinesAndDropsWhenFull(t *testing.T) {
	ch := make(chan string, 2)
	l := NewChanLogger(ch, slog.LevelInfo)

	l.Info("one", "ticker", "AAPL")
	l.Debug("hidden")
	l.Info("two")
	l.Info("three")

	require.Len(t, ch, 2)
	assert.Contains(t, <-ch, "msg=one ticker=AAPL")
	assert.Contains(t, <-ch, "msg=two")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("hello", "ticker", "FB")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "hello", m["msg"])
	assert.Equal(t, "FB", m["ticker"])
}
