package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/harun/ttyg/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	chatArgs []string
	input    string
	usage    string
	closed   bool
	chatErr  error
}

func (s *stubClient) Chat(ctx context.Context, assistantID, threadID string, in io.Reader) error {
	s.chatArgs = []string{assistantID, threadID}
	data, _ := io.ReadAll(in)
	s.input = string(data)
	return s.chatErr
}

func (s *stubClient) Usage(ctx context.Context, program string) {
	s.usage = program
}

func (s *stubClient) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func withStubClient(t *testing.T, stub *stubClient, buildErr error) *bool {
	t.Helper()
	cleaned := false
	orig := newClient
	newClient = func(out io.Writer) (chatClient, func(), error) {
		if buildErr != nil {
			return nil, nil, buildErr
		}
		return stub, func() { cleaned = true }, nil
	}
	t.Cleanup(func() { newClient = orig })
	return &cleaned
}

func TestRootCommand(t *testing.T) {
	t.Run("version flag rejected", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--version"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown flag")
		assert.NotContains(t, output.String(), GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Talk to Your Graph")
		assert.Contains(t, helpText, "<assistant-id> (<thread-id>|new)")
	})

	t.Run("no extra flags", func(t *testing.T) {
		cmd := GetRootCmd()
		assert.False(t, cmd.PersistentFlags().HasFlags())
	})
}

func TestRunChat(t *testing.T) {
	stub := &stubClient{}
	cleaned := withStubClient(t, stub, nil)

	cmd := GetRootCmd()
	cmd.SetArgs([]string{"asst_1", "new"})
	cmd.SetIn(strings.NewReader("hello\n"))

	require.NoError(t, Execute(context.Background()))

	assert.Equal(t, []string{"asst_1", "new"}, stub.chatArgs)
	assert.Equal(t, "hello\n", stub.input)
	assert.Empty(t, stub.usage)
	assert.True(t, stub.closed)
	assert.True(t, *cleaned)
}

func TestRunChatWrongArgs(t *testing.T) {
	for _, args := range [][]string{{}, {"asst_1"}, {"asst_1", "new", "extra"}} {
		stub := &stubClient{}
		withStubClient(t, stub, nil)

		cmd := GetRootCmd()
		cmd.SetArgs(args)

		err := Execute(context.Background())
		assert.ErrorIs(t, err, ErrUsage)
		assert.Equal(t, "ttyg", stub.usage)
		assert.Nil(t, stub.chatArgs)
	}
}

func TestRunChatNotStarted(t *testing.T) {
	stub := &stubClient{chatErr: fmt.Errorf("wrapped: %w", session.ErrNotStarted)}
	withStubClient(t, stub, nil)

	cmd := GetRootCmd()
	cmd.SetArgs([]string{"asst_missing", "new"})

	assert.NoError(t, Execute(context.Background()))
}

func TestRunChatStartupError(t *testing.T) {
	withStubClient(t, nil, errors.New("failed to open config file client.yaml"))

	cmd := GetRootCmd()
	cmd.SetArgs([]string{"asst_1", "new"})

	err := Execute(context.Background())
	assert.ErrorContains(t, err, "client.yaml")
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}
