package assistant

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the backend has no object with the given id
var ErrNotFound = errors.New("not found")

// Assistant is a remote, tool-using AI persona. Read-only to this client.
type Assistant struct {
	ID       string
	Name     string
	Metadata AssistantMetadata
}

// Description renders "id (name)" for listings
func (a *Assistant) Description() string {
	return a.ID + " (" + a.Name + ")"
}

// Thread is a conversation handle owned by the backend
type Thread struct {
	ID       string
	Metadata ThreadMetadata
}

// Description renders "id (name)" for listings
func (t *Thread) Description() string {
	return t.ID + " (" + t.Metadata.Name() + ")"
}

// Role of a message author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a thread message reduced to its text blocks
type Message struct {
	Role  Role
	Texts []string
}

// ToolCall is one function call requested by a run
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolOutput is the result submitted back for a ToolCall
type ToolOutput struct {
	CallID string
	Output string
}

// Run identifies one backend execution of an assistant on a thread
type Run struct {
	ID          string
	ThreadID    string
	AssistantID string
}

// EventKind enumerates the stream events the controller reacts to
type EventKind int

const (
	// EventTextDelta carries the next fragment of assistant text
	EventTextDelta EventKind = iota
	// EventTextDone marks the end of one assistant text block
	EventTextDone
	// EventRequiresAction pauses the run until tool outputs are submitted
	EventRequiresAction
	// EventRunFailed reports a run that ended in failed/cancelled/expired
	EventRunFailed
	// EventError is a stream-level error reported by the backend
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventTextDelta:
		return "text_delta"
	case EventTextDone:
		return "text_done"
	case EventRequiresAction:
		return "requires_action"
	case EventRunFailed:
		return "run_failed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item read from a run stream
type Event struct {
	Kind      EventKind
	Text      string
	Run       Run
	ToolCalls []ToolCall
}

// Stream is a pull iterator over the events of one streaming request.
// Next blocks until an event is available and returns false at the end
// of the stream or on error; Err tells them apart.
type Stream interface {
	Next() bool
	Current() Event
	Err() error
	Close() error
}

// Backend is the subset of the Assistants API the client needs
type Backend interface {
	GetAssistant(ctx context.Context, assistantID string) (*Assistant, error)
	ListAssistants(ctx context.Context, limit int) ([]Assistant, error)

	CreateThread(ctx context.Context, metadata ThreadMetadata) (*Thread, error)
	GetThread(ctx context.Context, threadID string) (*Thread, error)
	// UpdateThread merges the given keys into the thread metadata
	UpdateThread(ctx context.Context, threadID string, metadata ThreadMetadata) (*Thread, error)
	DeleteThread(ctx context.Context, threadID string) error

	AddUserMessage(ctx context.Context, threadID, text string) error
	// ListMessages returns up to limit messages, newest first
	ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error)

	StreamRun(ctx context.Context, threadID, assistantID string) (Stream, error)
	SubmitToolOutputs(ctx context.Context, run Run, outputs []ToolOutput) (Stream, error)

	// LatestRun returns the most recent run of the thread, or nil if none
	LatestRun(ctx context.Context, threadID string) (*Run, error)
	// RunToolCalls flattens the tool calls of all steps of a run
	RunToolCalls(ctx context.Context, run Run) ([]ToolCall, error)
}
