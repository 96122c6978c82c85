package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/ttyg/pkg/access"
	"github.com/harun/ttyg/pkg/agent"
	"github.com/harun/ttyg/pkg/assistant"
	"github.com/rs/zerolog"
)

const (
	// NewThread requests a freshly created thread
	NewThread = "new"
	// HistoryQuestions is how many past questions are replayed on adopt
	HistoryQuestions = 3
	// assistantListLimit mirrors the backend page size
	assistantListLimit = 100
)

// ErrNotStarted is returned by Run when the initial assistant or thread
// could not be adopted. The reason has already been printed.
var ErrNotStarted = errors.New("session not started")

// Printer is the terminal surface the shell writes to
type Printer interface {
	Success(text string)
	Error(text string)
	Info(text string)
	Item(text string)
	Blank()
	Boundary()
	Message(msg assistant.Message)
	ToolCall(call assistant.ToolCall)
	Help()
	Welcome()
	Prompt()
}

// Turns answers questions on a thread
type Turns interface {
	Ask(ctx context.Context, assistantID, threadID, message string) error
	Explain(ctx context.Context, threadID string) (agent.Explanation, error)
	History(ctx context.Context, threadID string, limit int) ([]assistant.Message, error)
}

// Registry is the local index of threads per user
type Registry interface {
	List(username string) []string
	Put(username, threadID string) error
	Remove(username, threadID string) error
}

// State is the active assistant and thread. A nil Thread means the
// current thread was deleted.
type State struct {
	Assistant *assistant.Assistant
	Thread    *assistant.Thread
}

// Config holds shell dependencies
type Config struct {
	Backend  assistant.Backend
	Guard    *access.Guard
	Registry Registry
	Turns    Turns
	Printer  Printer
	Logger   zerolog.Logger
}

// Shell dispatches user input to chat turns and !-commands
type Shell struct {
	backend  assistant.Backend
	guard    *access.Guard
	registry Registry
	turns    Turns
	printer  Printer
	logger   zerolog.Logger
	now      func() time.Time
}

// NewShell creates a new Shell
func NewShell(cfg Config) *Shell {
	return &Shell{
		backend:  cfg.Backend,
		guard:    cfg.Guard,
		registry: cfg.Registry,
		turns:    cfg.Turns,
		printer:  cfg.Printer,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Run adopts the requested assistant and thread, then reads lines until a
// blank line, the end of input or cancellation of ctx.
func (s *Shell) Run(ctx context.Context, assistantID, threadID string, lines <-chan string) error {
	state := &State{}
	if state.Assistant = s.InitAssistant(ctx, assistantID); state.Assistant == nil {
		return ErrNotStarted
	}
	if state.Thread = s.InitThread(ctx, threadID); state.Thread == nil {
		return ErrNotStarted
	}

	s.printer.Welcome()
	for {
		s.printer.Prompt()
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Session interrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.Handle(ctx, state, line); quit {
				return nil
			}
		}
	}
}

// Handle processes one line of input and reports whether the session ends
func (s *Shell) Handle(ctx context.Context, state *State, line string) (quit bool) {
	msg := strings.TrimSpace(line)
	if msg == "" {
		return true
	}

	if !strings.HasPrefix(msg, "!") {
		if s.checkThread(state) {
			s.printer.Boundary()
			s.ask(ctx, state, msg)
		}
		return false
	}

	cmd, arg, hasArg := splitCommand(msg)
	s.logger.Debug().Str("command", cmd).Bool("has_arg", hasArg).Msg("Command received")

	switch cmd {
	case "!help":
		s.printer.Help()
	case "!explain":
		if s.checkThread(state) {
			s.explain(ctx, state.Thread.ID)
		}
	case "!list":
		s.ListAssistantsAndThreads(ctx)
	case "!delete":
		if s.checkThread(state) && s.deleteThread(ctx, state.Thread.ID) {
			state.Thread = nil
		}
	case "!rename":
		if !hasArg {
			s.printer.Error(">>> !rename requires a name argument")
		} else if s.checkThread(state) {
			s.renameThread(ctx, state.Thread.ID, arg)
		}
	case "!assistant":
		if !hasArg {
			s.printer.Error(">>> !assistant requires an assistant ID argument")
		} else if a := s.InitAssistant(ctx, arg); a != nil {
			state.Assistant = a
		}
	case "!thread":
		if !hasArg {
			s.printer.Error(">>> !thread requires a thread ID argument")
		} else if t := s.InitThread(ctx, arg); t != nil {
			state.Thread = t
		}
	default:
		s.printer.Error(">>> Unknown command: " + msg)
	}
	return false
}

// splitCommand splits "!cmd rest of line" at the first run of whitespace
func splitCommand(msg string) (cmd, arg string, ok bool) {
	i := strings.IndexFunc(msg, isSpace)
	if i < 0 {
		return msg, "", false
	}
	arg = strings.TrimSpace(msg[i:])
	return msg[:i], arg, arg != ""
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func (s *Shell) checkThread(state *State) bool {
	if state.Thread == nil {
		s.printer.Error(">>> Thread was deleted, switch to another thread to chat/operate on thread.")
		return false
	}
	return true
}

func (s *Shell) apiError(err error) {
	s.printer.Error(">>> " + assistant.APIMessage(err))
}

func (s *Shell) ask(ctx context.Context, state *State, msg string) {
	if err := s.turns.Ask(ctx, state.Assistant.ID, state.Thread.ID, msg); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.apiError(err)
	}
}

// InitAssistant fetches and authorizes an assistant. On failure the reason
// is printed and nil returned.
func (s *Shell) InitAssistant(ctx context.Context, assistantID string) *assistant.Assistant {
	a, err := s.backend.GetAssistant(ctx, assistantID)
	if err != nil {
		s.apiError(err)
		return nil
	}
	if err := s.guard.AuthorizeAssistant(a); err != nil {
		s.denied(err)
		return nil
	}

	s.printer.Success(">>> Using assistant: " + a.Description())
	return a
}

// InitThread creates a thread for "new", otherwise fetches and authorizes
// an existing one and replays its recent history. On failure the reason is
// printed and nil returned.
func (s *Shell) InitThread(ctx context.Context, threadID string) *assistant.Thread {
	if threadID == NewThread {
		return s.createThread(ctx)
	}

	t := s.retrieveThread(ctx, threadID)
	if t == nil {
		return nil
	}
	s.printer.Success(">>> Using existing thread: " + t.Description())

	history, err := s.turns.History(ctx, t.ID, HistoryQuestions)
	if err != nil {
		s.apiError(err)
		return nil
	}
	for _, msg := range history {
		s.printer.Message(msg)
	}
	return t
}

func (s *Shell) createThread(ctx context.Context) *assistant.Thread {
	meta := assistant.NewThreadMetadata(s.guard.InstallationID, s.guard.Username, s.now())
	t, err := s.backend.CreateThread(ctx, meta)
	if err != nil {
		s.apiError(err)
		return nil
	}
	s.printer.Success(">>> Created thread: " + t.ID)

	if err := s.registry.Put(s.guard.Username, t.ID); err != nil {
		s.logger.Error().Err(err).Str("thread_id", t.ID).Msg("Failed to persist thread")
		s.printer.Error(fmt.Sprintf(">>> Failed to save thread %s locally: %v", t.ID, err))
	}
	return t
}

// retrieveThread fetches and authorizes a thread, printing why it is unusable
func (s *Shell) retrieveThread(ctx context.Context, threadID string) *assistant.Thread {
	t, err := s.backend.GetThread(ctx, threadID)
	if err != nil {
		s.apiError(err)
		return nil
	}
	if err := s.guard.AuthorizeThread(t); err != nil {
		s.denied(err)
		return nil
	}
	return t
}

func (s *Shell) denied(err error) {
	var denied *access.DeniedError
	if errors.As(err, &denied) {
		s.printer.Error(">>> " + denied.Message)
		return
	}
	s.printer.Error(">>> " + err.Error())
}

func (s *Shell) renameThread(ctx context.Context, threadID, name string) {
	if _, err := s.backend.UpdateThread(ctx, threadID, assistant.NameUpdate(name)); err != nil {
		s.apiError(err)
	}
}

// deleteThread removes a thread from the backend and the registry. A thread
// already gone from the backend is still dropped locally.
func (s *Shell) deleteThread(ctx context.Context, threadID string) bool {
	if err := s.backend.DeleteThread(ctx, threadID); err != nil {
		if !errors.Is(err, assistant.ErrNotFound) {
			s.apiError(err)
			return false
		}
		s.logger.Warn().Str("thread_id", threadID).Msg("Thread already deleted on the backend")
	}

	if err := s.registry.Remove(s.guard.Username, threadID); err != nil {
		s.logger.Error().Err(err).Str("thread_id", threadID).Msg("Failed to update thread registry")
		s.printer.Error(fmt.Sprintf(">>> Failed to remove thread %s locally: %v", threadID, err))
	}
	s.printer.Success(fmt.Sprintf(">>> Thread %s was deleted.", threadID))
	return true
}

func (s *Shell) explain(ctx context.Context, threadID string) {
	exp, err := s.turns.Explain(ctx, threadID)
	if err != nil {
		s.apiError(err)
		return
	}

	switch {
	case !exp.Asked:
		s.printer.Info(">>> Nothing asked yet.")
	case exp.AnsweredDirectly():
		s.printer.Info(">>> Answered directly without calling any tools")
	default:
		for _, call := range exp.ToolCalls {
			s.printer.ToolCall(call)
		}
	}
}

// ListAssistantsAndThreads prints the assistants of this installation and
// the registered threads that are still accessible.
func (s *Shell) ListAssistantsAndThreads(ctx context.Context) {
	all, err := s.backend.ListAssistants(ctx, assistantListLimit)
	if err != nil {
		s.apiError(err)
		return
	}

	if visible := s.guard.FilterAssistants(all); len(visible) > 0 {
		s.printer.Info(">>> The available assistants are:")
		s.printer.Blank()
		for i := range visible {
			s.printer.Item(visible[i].Description())
		}
	} else {
		s.printer.Info(">>> There are no assistants available.")
		s.printer.Info(">>> Please create a TTYG agent in GraphDB Workbench.")
	}
	s.printer.Blank()

	var threads []*assistant.Thread
	for _, id := range s.registry.List(s.guard.Username) {
		if t := s.retrieveThread(ctx, id); t != nil {
			threads = append(threads, t)
		}
	}
	if len(threads) == 0 {
		s.printer.Info(">>> There are no persisted threads.")
		return
	}
	s.printer.Info(">>> The persisted threads are:")
	s.printer.Blank()
	for _, t := range threads {
		s.printer.Item(t.Description())
	}
}
