package common

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	LogError(errors.New("disk I/O error"), "failed to save patterns", Fields{"tenant": "t1"})
	LogInfo("detection run complete", Fields{"created": 2})

	out := buf.String()
	assert.Contains(t, out, "failed to save patterns")
	assert.Contains(t, out, "disk I/O error")
	assert.Contains(t, out, `"tenant":"t1"`)
	assert.Contains(t, out, "detection run complete")
	assert.Contains(t, out, `"created":2`)
}
