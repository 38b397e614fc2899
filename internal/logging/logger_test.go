package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogrusLogger(t *testing.T) {
	t.Run("should write message and fields at the enabled level", func(t *testing.T) {
		// given
		var buf bytes.Buffer
		base := logrus.New()
		base.SetOutput(&buf)
		base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
		base.SetLevel(logrus.InfoLevel)
		log := NewLogrus(base)

		// when
		log.Debug("hidden", "k", "v")
		log.Info("installed", "dependency", "ffmpeg", "files", 3)

		// then
		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `msg=installed`)
		assert.Contains(t, out, `dependency=ffmpeg`)
		assert.Contains(t, out, `files=3`)
	})

	t.Run("should record dangling keys instead of dropping them", func(t *testing.T) {
		// given
		var buf bytes.Buffer
		base := logrus.New()
		base.SetOutput(&buf)
		base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
		log := NewLogrus(base)

		// when
		log.Warn("odd", "lonely")

		// then
		assert.Contains(t, buf.String(), `!BADKEY=lonely`)
	})
}

func TestOrNoop(t *testing.T) {
	assert.NotNil(t, OrNoop(nil))

	l := Noop()
	assert.Same(t, l, OrNoop(l))

	// must not panic
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
