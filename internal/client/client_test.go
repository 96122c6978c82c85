package client

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/ttyg/internal/config"
	"github.com/harun/ttyg/internal/logger"
	"github.com/harun/ttyg/pkg/assistant"
	"github.com/harun/ttyg/pkg/assistant/assistanttest"
	"github.com/harun/ttyg/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *assistanttest.Backend, *bytes.Buffer) {
	t.Helper()

	fake := assistanttest.NewBackend()
	fake.AddAssistant("asst_1", "Star Wars", "inst-1")

	orig := newBackend
	newBackend = func(*config.Config, *logger.Logger) assistant.Backend { return fake }
	t.Cleanup(func() { newBackend = orig })

	cfg := config.DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.GraphDB.URL = "http://localhost:7200"
	cfg.GraphDB.Username = "alice"
	cfg.GraphDB.InstallationID = "inst-1"
	cfg.ThreadsFile = filepath.Join(t.TempDir(), "threads.yaml")

	log, err := logger.New(logger.Config{Level: "debug"})
	require.NoError(t, err)

	var out bytes.Buffer
	c, err := New(cfg, log, &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	return c, fake, &out
}

func TestChat(t *testing.T) {
	c, fake, out := newTestClient(t)
	fake.Script(nil, assistant.Event{Kind: assistant.EventTextDelta, Text: "pong"},
		assistant.Event{Kind: assistant.EventTextDone, Text: "pong"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := c.Chat(ctx, "asst_1", session.NewThread, strings.NewReader("ping\n\nignored\n"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), ">>> Created thread: ")
	assert.Contains(t, out.String(), "pong")
	assert.Len(t, c.registry.List("alice"), 1)
	assert.Len(t, fake.Streams, 1)
}

func TestChatUnknownAssistant(t *testing.T) {
	c, _, _ := newTestClient(t)

	err := c.Chat(context.Background(), "asst_missing", session.NewThread, strings.NewReader(""))
	assert.ErrorIs(t, err, session.ErrNotStarted)
}

func TestUsage(t *testing.T) {
	c, _, out := newTestClient(t)

	c.Usage(context.Background(), "ttyg")

	assert.Contains(t, out.String(), "Usage: ttyg <assistant-id> (<thread-id>|new)")
	assert.Contains(t, out.String(), "asst_1 (Star Wars)")
	assert.Contains(t, out.String(), ">>> There are no persisted threads.")
}

func TestNewFailsOnBadRegistry(t *testing.T) {
	orig := newBackend
	t.Cleanup(func() { newBackend = orig })

	cfg := config.DefaultConfig()
	cfg.ThreadsFile = t.TempDir()

	log, err := logger.New(logger.Config{})
	require.NoError(t, err)

	_, err = New(cfg, log, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReadLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := readLines(ctx, strings.NewReader("a\nb\n"))

	assert.Equal(t, "a", <-lines)
	cancel()

	for range lines {
	}
}
