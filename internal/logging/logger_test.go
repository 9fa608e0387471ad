package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	assert.Equal(t, log.WarnLevel, l.GetLevel())

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown", "song_id", 7)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "song_id=7")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	l := New(&bytes.Buffer{}, "loud")
	assert.Equal(t, log.InfoLevel, l.GetLevel())
}
