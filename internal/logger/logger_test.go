package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewWithConfig(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "ctrl", log.InfoLevel, false, false, log.LogfmtFormatter)

	l.Debug("hidden")
	l.Info("fetch issued", "query", "wor")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "query=wor")
	assert.Contains(t, out, "ctrl")
}

func TestSetupGlobal(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	SetupGlobal(true)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	SetupGlobal(false)
	assert.Equal(t, log.WarnLevel, log.GetLevel())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("nothing to see")
	})
}

func TestNewWritesToGivenWriter(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	log.SetLevel(log.InfoLevel)

	var buf bytes.Buffer
	New(&buf, "session").Info("match", "query", "wor")
	assert.Contains(t, buf.String(), "session")
	assert.Contains(t, buf.String(), "query=wor")
}
