package assistant

import (
	"encoding/json"
	"strconv"
	"time"
)

// Metadata keys written by GraphDB Workbench and this client
const (
	KeyThreadName           = "name"
	KeyThreadInstallationID = "graphdb.installationId"
	KeyThreadUsername       = "graphdb.username"
	KeyThreadUpdatedAt      = "graphdb.updatedAt"

	KeyAssistantTTYG = "graphdb.ttyg"

	defaultThreadName = "<no name>"
)

// ThreadMetadata is the string map the backend stores on a thread
type ThreadMetadata map[string]string

// NewThreadMetadata builds the metadata of a freshly created thread,
// compatible with threads created by the TTYG UI.
func NewThreadMetadata(installationID, username string, now time.Time) ThreadMetadata {
	return ThreadMetadata{
		KeyThreadName:           "[Unnamed chat@" + now.Truncate(time.Second).Format("2006-01-02T15:04:05") + "]",
		KeyThreadInstallationID: installationID,
		KeyThreadUsername:       username,
	}
}

func (m ThreadMetadata) lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// Name returns the display name, "<no name>" when unset
func (m ThreadMetadata) Name() string {
	if v, ok := m.lookup(KeyThreadName); ok {
		return v
	}
	return defaultThreadName
}

// InstallationID returns the TTYG installation the thread belongs to
func (m ThreadMetadata) InstallationID() (string, bool) {
	return m.lookup(KeyThreadInstallationID)
}

// Username returns the GraphDB user that owns the thread
func (m ThreadMetadata) Username() (string, bool) {
	return m.lookup(KeyThreadUsername)
}

// UpdatedAt returns the last-turn time, zero when unset or unparsable
func (m ThreadMetadata) UpdatedAt() time.Time {
	v, ok := m.lookup(KeyThreadUpdatedAt)
	if !ok {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// NameUpdate is the metadata patch for a rename
func NameUpdate(name string) ThreadMetadata {
	return ThreadMetadata{KeyThreadName: name}
}

// TouchUpdate is the metadata patch recording the time of the last turn
func TouchUpdate(now time.Time) ThreadMetadata {
	return ThreadMetadata{KeyThreadUpdatedAt: strconv.FormatInt(now.Unix(), 10)}
}

// AssistantMetadata is the string map the backend stores on an assistant
type AssistantMetadata map[string]string

type ttygMetadata struct {
	InstallationID *string `json:"installationId"`
}

// InstallationID extracts installationId from the JSON object stored under
// graphdb.ttyg. Missing key, malformed JSON or a missing field all report
// not ok.
func (m AssistantMetadata) InstallationID() (string, bool) {
	if m == nil {
		return "", false
	}
	raw, ok := m[KeyAssistantTTYG]
	if !ok {
		return "", false
	}
	var meta ttygMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.InstallationID == nil {
		return "", false
	}
	return *meta.InstallationID, true
}
