package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "ttyg.log")

		l, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		l.Info().Str("thread_id", "thread_1").Msg("turn finished")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "turn finished")
		assert.Contains(t, string(data), "thread_1")
	})

	t.Run("no sinks discards", func(t *testing.T) {
		l, err := New(Config{Level: "info"})
		require.NoError(t, err)
		assert.NoError(t, l.Close())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := New(Config{Level: "loud", Console: buf})
		require.NoError(t, err)

		l.Debug().Msg("hidden")
		l.Info().Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Equal(t, zerolog.InfoLevel, l.Zerolog().GetLevel())
	})

	t.Run("level methods write through", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := New(Config{Level: "debug", Console: buf})
		require.NoError(t, err)

		l.Debug().Msg("d-event")
		l.Info().Msg("i-event")
		l.Warn().Msg("w-event")
		l.Error().Msg("e-event")

		out := buf.String()
		for _, want := range []string{"d-event", "i-event", "w-event", "e-event", `"component":"ttyg"`} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("redaction masks secrets", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := New(Config{Level: "info", Console: buf, Redaction: true})
		require.NoError(t, err)

		l.Info().Str("authorization", "Bearer abc.def").Msg("calling tool")

		assert.NotContains(t, buf.String(), "abc.def")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})
}
