// Package assistanttest provides an in-memory assistant.Backend with
// scripted run streams for tests.
package assistanttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/harun/ttyg/pkg/assistant"
)

// Stream replays a fixed list of events
type Stream struct {
	events  []assistant.Event
	err     error
	pos     int
	current assistant.Event
	onEvent func(assistant.Event)
	closed  bool
}

// NewStream creates a stream that yields events and then ends with err
func NewStream(err error, events ...assistant.Event) *Stream {
	return &Stream{events: events, err: err}
}

func (s *Stream) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.current = s.events[s.pos]
	s.pos++
	if s.onEvent != nil {
		s.onEvent(s.current)
	}
	return true
}

func (s *Stream) Current() assistant.Event { return s.current }

func (s *Stream) Err() error {
	if s.pos >= len(s.events) {
		return s.err
	}
	return nil
}

func (s *Stream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether the consumer closed the stream
func (s *Stream) Closed() bool { return s.closed }

// Script is the event sequence returned by one StreamRun or SubmitToolOutputs call
type Script struct {
	Events []assistant.Event
	Err    error
}

// Submission records one SubmitToolOutputs call
type Submission struct {
	Run     assistant.Run
	Outputs []assistant.ToolOutput
}

// Backend is an in-memory assistant.Backend. Streams are served from
// Scripts in order; Fail injects an error per method name.
type Backend struct {
	mu sync.Mutex

	Assistants map[string]*assistant.Assistant
	Threads    map[string]*assistant.Thread
	// Messages per thread, oldest first
	Messages map[string][]assistant.Message
	// Runs per thread, oldest first
	Runs      map[string][]assistant.Run
	toolCalls map[string][]assistant.ToolCall

	Scripts     []Script
	Streams     []*Stream
	Submissions []Submission
	Updates     []assistant.ThreadMetadata
	Fail        map[string]error

	nextID int
}

// NewBackend creates an empty fake backend
func NewBackend() *Backend {
	return &Backend{
		Assistants: map[string]*assistant.Assistant{},
		Threads:    map[string]*assistant.Thread{},
		Messages:   map[string][]assistant.Message{},
		Runs:       map[string][]assistant.Run{},
		toolCalls:  map[string][]assistant.ToolCall{},
		Fail:       map[string]error{},
	}
}

// AddAssistant registers an assistant bound to an installation id
func (b *Backend) AddAssistant(id, name, installationID string) *assistant.Assistant {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := &assistant.Assistant{
		ID:       id,
		Name:     name,
		Metadata: assistant.AssistantMetadata{assistant.KeyAssistantTTYG: fmt.Sprintf(`{"installationId":%q}`, installationID)},
	}
	b.Assistants[id] = a
	return a
}

// AddThread registers an existing thread
func (b *Backend) AddThread(id string, metadata assistant.ThreadMetadata) *assistant.Thread {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &assistant.Thread{ID: id, Metadata: cloneMeta(metadata)}
	b.Threads[id] = t
	return t
}

// Script queues the events of the next stream
func (b *Backend) Script(err error, events ...assistant.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Scripts = append(b.Scripts, Script{Events: events, Err: err})
}

func (b *Backend) fail(method string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Fail[method]
}

func (b *Backend) id(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s_%d", prefix, b.nextID)
}

func cloneMeta(m assistant.ThreadMetadata) assistant.ThreadMetadata {
	if m == nil {
		return nil
	}
	out := make(assistant.ThreadMetadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: no %s found with id '%s'", assistant.ErrNotFound, kind, id)
}

func (b *Backend) GetAssistant(ctx context.Context, assistantID string) (*assistant.Assistant, error) {
	if err := b.fail("GetAssistant"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.Assistants[assistantID]
	if !ok {
		return nil, notFound("assistant", assistantID)
	}
	cp := *a
	return &cp, nil
}

func (b *Backend) ListAssistants(ctx context.Context, limit int) ([]assistant.Assistant, error) {
	if err := b.fail("ListAssistants"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []assistant.Assistant
	for _, a := range b.Assistants {
		if len(out) == limit {
			break
		}
		out = append(out, *a)
	}
	return out, nil
}

func (b *Backend) CreateThread(ctx context.Context, metadata assistant.ThreadMetadata) (*assistant.Thread, error) {
	if err := b.fail("CreateThread"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &assistant.Thread{ID: b.id("thread"), Metadata: cloneMeta(metadata)}
	b.Threads[t.ID] = t
	cp := *t
	cp.Metadata = cloneMeta(t.Metadata)
	return &cp, nil
}

func (b *Backend) GetThread(ctx context.Context, threadID string) (*assistant.Thread, error) {
	if err := b.fail("GetThread"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.Threads[threadID]
	if !ok {
		return nil, notFound("thread", threadID)
	}
	return &assistant.Thread{ID: t.ID, Metadata: cloneMeta(t.Metadata)}, nil
}

func (b *Backend) UpdateThread(ctx context.Context, threadID string, metadata assistant.ThreadMetadata) (*assistant.Thread, error) {
	if err := b.fail("UpdateThread"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.Threads[threadID]
	if !ok {
		return nil, notFound("thread", threadID)
	}
	if t.Metadata == nil {
		t.Metadata = assistant.ThreadMetadata{}
	}
	for k, v := range metadata {
		t.Metadata[k] = v
	}
	b.Updates = append(b.Updates, cloneMeta(metadata))
	return &assistant.Thread{ID: t.ID, Metadata: cloneMeta(t.Metadata)}, nil
}

func (b *Backend) DeleteThread(ctx context.Context, threadID string) error {
	if err := b.fail("DeleteThread"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Threads[threadID]; !ok {
		return notFound("thread", threadID)
	}
	delete(b.Threads, threadID)
	delete(b.Messages, threadID)
	return nil
}

func (b *Backend) AddUserMessage(ctx context.Context, threadID, text string) error {
	if err := b.fail("AddUserMessage"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Threads[threadID]; !ok {
		return notFound("thread", threadID)
	}
	b.Messages[threadID] = append(b.Messages[threadID], assistant.Message{Role: assistant.RoleUser, Texts: []string{text}})
	return nil
}

func (b *Backend) ListMessages(ctx context.Context, threadID string, limit int) ([]assistant.Message, error) {
	if err := b.fail("ListMessages"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.Messages[threadID]
	var out []assistant.Message
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

// nextStream pops the next script and wires events to run and its bookkeeping
func (b *Backend) nextStream(run assistant.Run) (*Stream, error) {
	if len(b.Scripts) == 0 {
		return nil, fmt.Errorf("no scripted stream left")
	}
	script := b.Scripts[0]
	b.Scripts = b.Scripts[1:]

	events := make([]assistant.Event, len(script.Events))
	copy(events, script.Events)
	for i := range events {
		if events[i].Run.ID == "" {
			events[i].Run = run
		}
	}

	s := NewStream(script.Err, events...)
	s.onEvent = func(ev assistant.Event) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch ev.Kind {
		case assistant.EventRequiresAction:
			b.toolCalls[ev.Run.ID] = append(b.toolCalls[ev.Run.ID], ev.ToolCalls...)
		case assistant.EventTextDone:
			b.Messages[run.ThreadID] = append(b.Messages[run.ThreadID],
				assistant.Message{Role: assistant.RoleAssistant, Texts: []string{ev.Text}})
		}
	}
	b.Streams = append(b.Streams, s)
	return s, nil
}

func (b *Backend) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.Stream, error) {
	if err := b.fail("StreamRun"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	run := assistant.Run{ID: b.id("run"), ThreadID: threadID, AssistantID: assistantID}
	b.Runs[threadID] = append(b.Runs[threadID], run)
	return b.nextStream(run)
}

func (b *Backend) SubmitToolOutputs(ctx context.Context, run assistant.Run, outputs []assistant.ToolOutput) (assistant.Stream, error) {
	if err := b.fail("SubmitToolOutputs"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]assistant.ToolOutput, len(outputs))
	copy(cp, outputs)
	b.Submissions = append(b.Submissions, Submission{Run: run, Outputs: cp})
	return b.nextStream(run)
}

func (b *Backend) LatestRun(ctx context.Context, threadID string) (*assistant.Run, error) {
	if err := b.fail("LatestRun"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	runs := b.Runs[threadID]
	if len(runs) == 0 {
		return nil, nil
	}
	run := runs[len(runs)-1]
	return &run, nil
}

func (b *Backend) RunToolCalls(ctx context.Context, run assistant.Run) ([]assistant.ToolCall, error) {
	if err := b.fail("RunToolCalls"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	calls := b.toolCalls[run.ID]
	out := make([]assistant.ToolCall, len(calls))
	copy(out, calls)
	return out, nil
}

var _ assistant.Backend = (*Backend)(nil)
