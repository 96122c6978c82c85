package access

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harun/ttyg/pkg/assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nowForTest = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func thread(meta assistant.ThreadMetadata) *assistant.Thread {
	return &assistant.Thread{ID: "thread_1", Metadata: meta}
}

func agent(installationID string) *assistant.Assistant {
	meta := assistant.AssistantMetadata{}
	if installationID != "" {
		meta[assistant.KeyAssistantTTYG] = fmt.Sprintf(`{"installationId":%q}`, installationID)
	}
	return &assistant.Assistant{ID: "asst_1", Name: "Agent", Metadata: meta}
}

func TestInstallationMatches(t *testing.T) {
	g := NewGuard("inst-1", "alice")

	assert.True(t, g.InstallationMatches("inst-1", true))
	assert.True(t, g.InstallationMatches(DefaultInstallationID, true))
	assert.False(t, g.InstallationMatches("inst-2", true))
	assert.False(t, g.InstallationMatches("", false))
	assert.False(t, g.InstallationMatches("inst-1", false))
}

func TestAuthorizeAssistant(t *testing.T) {
	g := NewGuard("inst-1", "alice")

	assert.NoError(t, g.AuthorizeAssistant(agent("inst-1")))
	assert.NoError(t, g.AuthorizeAssistant(agent(DefaultInstallationID)))

	for _, a := range []*assistant.Assistant{
		agent("inst-2"),
		agent(""),
		{ID: "asst_2"},
		{ID: "asst_3", Metadata: assistant.AssistantMetadata{assistant.KeyAssistantTTYG: "garbage"}},
	} {
		err := g.AuthorizeAssistant(a)
		require.Error(t, err, a.ID)
		assert.True(t, errors.Is(err, ErrInstallationMismatch))
		assert.Equal(t, "Assistant not associated with the configured TTYG installation ID.", err.Error())
	}
}

func TestAuthorizeThread(t *testing.T) {
	g := NewGuard("inst-1", "alice")

	tests := []struct {
		name    string
		meta    assistant.ThreadMetadata
		wantErr error
	}{
		{"owned thread", assistant.NewThreadMetadata("inst-1", "alice", nowForTest), nil},
		{"default installation", assistant.ThreadMetadata{
			assistant.KeyThreadInstallationID: DefaultInstallationID,
			assistant.KeyThreadUsername:       "alice",
		}, nil},
		{"other installation, same user", assistant.NewThreadMetadata("inst-2", "alice", nowForTest), ErrInstallationMismatch},
		{"other installation, other user", assistant.NewThreadMetadata("inst-2", "bob", nowForTest), ErrInstallationMismatch},
		{"other user", assistant.NewThreadMetadata("inst-1", "bob", nowForTest), ErrOwnerMismatch},
		{"missing username", assistant.ThreadMetadata{assistant.KeyThreadInstallationID: "inst-1"}, ErrOwnerMismatch},
		{"no metadata", nil, ErrInstallationMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AuthorizeThread(thread(tt.meta))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))

			var denied *DeniedError
			require.True(t, errors.As(err, &denied))
			assert.NotEmpty(t, denied.Message)
		})
	}
}

func TestAuthorizeThreadMessages(t *testing.T) {
	g := NewGuard("inst-1", "alice")

	err := g.AuthorizeThread(thread(assistant.NewThreadMetadata("inst-2", "alice", nowForTest)))
	assert.Equal(t, "Thread not associated with the configured TTYG installation ID.", err.Error())

	err = g.AuthorizeThread(thread(assistant.NewThreadMetadata("inst-1", "bob", nowForTest)))
	assert.Equal(t, "Thread not associated with the configured GraphDB username.", err.Error())
}

func TestFilterAssistants(t *testing.T) {
	g := NewGuard("inst-1", "alice")

	mine, other, shared := agent("inst-1"), agent("inst-2"), agent(DefaultInstallationID)
	mine.ID, other.ID, shared.ID = "asst_mine", "asst_other", "asst_shared"

	kept := g.FilterAssistants([]assistant.Assistant{*mine, *other, *shared, {ID: "bare"}})

	require.Len(t, kept, 2)
	assert.Equal(t, "asst_mine", kept[0].ID)
	assert.Equal(t, "asst_shared", kept[1].ID)
	assert.Empty(t, g.FilterAssistants(nil))
}
