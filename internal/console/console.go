// Package console renders the chat to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/harun/ttyg/pkg/agent"
	"github.com/harun/ttyg/pkg/assistant"
)

const (
	boundary = "..."
	indent   = "    "
)

// Console writes colored chat output to w. It is safe for concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer

	success *color.Color
	errs    *color.Color
	info    *color.Color
}

// New creates a Console writing to w. Colors follow the terminal
// detection of fatih/color unless noColor is set.
func New(w io.Writer, noColor bool) *Console {
	c := &Console{
		w:       w,
		success: color.New(color.FgYellow),
		errs:    color.New(color.FgRed),
		info:    color.New(color.FgCyan),
	}
	if noColor {
		for _, col := range []*color.Color{c.success, c.errs, c.info} {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) line(col *color.Color, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col.Fprintln(c.w, text)
}

func (c *Console) plain(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// Success prints a yellow status line
func (c *Console) Success(text string) { c.line(c.success, text) }

// Error prints a red line
func (c *Console) Error(text string) { c.line(c.errs, text) }

// Info prints a cyan line
func (c *Console) Info(text string) { c.line(c.info, text) }

// Boundary prints the "..." separator between messages
func (c *Console) Boundary() { c.line(c.success, boundary) }

// Blank prints an empty line
func (c *Console) Blank() { c.plain("\n") }

// Item prints one tab-indented listing entry
func (c *Console) Item(text string) { c.plain("\t%s\n", text) }

// AssistantDelta prints a fragment of a streamed answer without a newline.
// Writes are unbuffered so each fragment shows up immediately.
func (c *Console) AssistantDelta(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, text)
}

// AssistantDone ends a streamed answer
func (c *Console) AssistantDone() {
	c.plain("\n")
	c.Boundary()
}

// AssistantMessage prints a complete assistant message from history
func (c *Console) AssistantMessage(text string) {
	c.AssistantDelta(text)
	c.AssistantDone()
}

// UserMessage prints a user message from history
func (c *Console) UserMessage(text string) {
	c.plain("> %s\n", text)
	c.Boundary()
}

// Message prints every text block of a history message
func (c *Console) Message(msg assistant.Message) {
	for _, text := range msg.Texts {
		if msg.Role == assistant.RoleUser {
			c.UserMessage(text)
		} else {
			c.AssistantMessage(text)
		}
	}
}

// ToolOutput prints a tool result, cut to its display limit
func (c *Console) ToolOutput(result agent.ToolResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.success.Fprintln(c.w, fmt.Sprintf(">>>>>> Called %s, result (%s characters):", result.Name, Thousands(result.Length)))

	body := indent + strings.ReplaceAll(result.Display, "\n", "\n"+indent)
	if result.Truncated {
		c.success.Fprint(c.w, body)
		c.errs.Fprintln(c.w, fmt.Sprintf("... (output truncated at %s)", Thousands(result.Limit)))
	} else {
		c.success.Fprintln(c.w, body)
	}
	fmt.Fprintln(c.w)
}

// ToolCall prints one call listed by !explain
func (c *Console) ToolCall(call assistant.ToolCall) {
	c.Info(">>> Called tool: " + call.Name)
	c.Info(indent + strings.ReplaceAll(call.Arguments, "\n", "\n"+indent))
}

// Help prints the list of !-prefixed commands
func (c *Console) Help() {
	c.plain("\t!help                      - display the list of commands\n" +
		"\t!explain                   - show the tools used to answer the last question\n" +
		"\t!list                      - show the available assistants and threads\n" +
		"\t!assistant <assistant-id>  - switch to a different assistant\n" +
		"\t!thread <thread-id>|new    - switch to a different thread\n" +
		"\t!rename <name>             - rename the current thread\n" +
		"\t!delete                    - delete the current thread\n\n")
}

// Welcome prints the prompt shown when the chat starts
func (c *Console) Welcome() {
	c.Info(">>> Start conversation by asking something. Press Enter (empty input) to quit.")
	c.Info(">>> Type !help and press Enter to get a list of !-prefixed commands.")
}

// Usage prints command-line usage
func (c *Console) Usage(program string) {
	c.plain("GraphDB Talk to Your Graph Client\n"+
		"Usage: %s <assistant-id> (<thread-id>|new)\n\n"+
		"You can provide an existing thread ID, or the special value 'new' to create a new thread.\n\n", program)
}

// Prompt prints the input prompt
func (c *Console) Prompt() { c.plain("> ") }

// Thousands formats n with comma separators
func Thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
