package agent

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// ToolOutputPrintLimit is how many characters of a tool output are echoed
const ToolOutputPrintLimit = 1000

// ToolRunner executes a single tool call. ok false means there is no
// output for the call and it is left out of the submission.
type ToolRunner interface {
	Call(ctx context.Context, agentID, toolName, args string) (output string, ok bool)
}

// ToolResult is what the user sees about one executed call
type ToolResult struct {
	Name string
	// Display is Output cut to Limit characters
	Display   string
	Length    int
	Truncated bool
	Limit     int
}

// Printer renders a turn to the user
type Printer interface {
	AssistantDelta(text string)
	AssistantDone()
	ToolOutput(result ToolResult)
	Error(text string)
}

// RunFailedError is returned when the backend ends a run without answering
type RunFailedError struct {
	RunID  string
	Reason string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run %s failed: %s", e.RunID, e.Reason)
}

// Truncate cuts s to at most limit characters (Unicode code points)
func Truncate(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}

func newToolResult(name, output string) ToolResult {
	display, truncated := Truncate(output, ToolOutputPrintLimit)
	return ToolResult{
		Name:      name,
		Display:   display,
		Length:    utf8.RuneCountInString(output),
		Truncated: truncated,
		Limit:     ToolOutputPrintLimit,
	}
}
