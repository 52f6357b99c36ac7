package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warn, &buf)

	l.Debug("ignored %d", 1)
	l.Info("also ignored")
	l.Warn("table %s near capacity", "files")

	out := buf.String()
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "table files near capacity")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, &buf).With("image")

	l.Error("sync failed: %v", assertErr)

	assert.True(t, strings.Contains(buf.String(), "[image]"))
}

func TestDiscardIsSilent(t *testing.T) {
	d := Discard()
	d.Error("should never be written")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, Warn, lvl)

	_, err = ParseLevel("bogus")
	assert.Error(t, err)
}

var assertErr = errString("boom")

type errString string

func (e errString) Error() string { return string(e) }
