package utils

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, slog.LevelDebug)
	tagged := log.With("peer", "p1").With("recno", 3)

	tagged.Info("round advanced")
	out := buf.String()
	assert.Contains(t, out, "[orchestra] round advanced")
	assert.Contains(t, out, "peer=p1")
	assert.Contains(t, out, "recno=3")

	buf.Reset()
	log.Info("untagged")
	assert.NotContains(t, buf.String(), "peer=")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, slog.LevelWarn)
	log.Debug("hidden")
	log.Warn("shown", "key", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "key=1")
}
