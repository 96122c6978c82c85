package agent

import (
	"context"
	"fmt"

	"github.com/harun/ttyg/pkg/assistant"
)

// Explanation describes how the most recent question on a thread was answered
type Explanation struct {
	// Asked is false when the thread has no runs yet
	Asked     bool
	ToolCalls []assistant.ToolCall
}

// AnsweredDirectly reports a run that used no tools
func (e Explanation) AnsweredDirectly() bool {
	return e.Asked && len(e.ToolCalls) == 0
}

// Explain lists the tool calls made by the latest run of a thread
func (c *Controller) Explain(ctx context.Context, threadID string) (Explanation, error) {
	run, err := c.backend.LatestRun(ctx, threadID)
	if err != nil {
		return Explanation{}, fmt.Errorf("failed to fetch latest run: %w", err)
	}
	if run == nil {
		return Explanation{}, nil
	}
	if run.ThreadID == "" {
		run.ThreadID = threadID
	}

	calls, err := c.backend.RunToolCalls(ctx, *run)
	if err != nil {
		return Explanation{}, fmt.Errorf("failed to fetch run steps: %w", err)
	}
	return Explanation{Asked: true, ToolCalls: calls}, nil
}

// History returns the last limit questions asked on a thread together with
// their answers, oldest first.
func (c *Controller) History(ctx context.Context, threadID string, limit int) ([]assistant.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Newest first, with headroom for several answers per question
	recent, err := c.backend.ListMessages(ctx, threadID, 3*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var picked []assistant.Message
	questions := 0
	for _, msg := range recent {
		picked = append(picked, msg)
		if msg.Role == assistant.RoleUser {
			questions++
			if questions == limit {
				break
			}
		}
	}

	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked, nil
}
