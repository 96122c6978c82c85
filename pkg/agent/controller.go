package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/ttyg/internal/observability"
	"github.com/harun/ttyg/internal/tracing"
	"github.com/harun/ttyg/pkg/assistant"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Controller runs turns: user message in, streamed answer out, with tool
// calls dispatched whenever the run pauses for them.
type Controller struct {
	backend  assistant.Backend
	tools    ToolRunner
	printer  Printer
	logger   zerolog.Logger
	parallel bool
	now      func() time.Time
}

// Config holds controller dependencies
type Config struct {
	Backend assistant.Backend
	Tools   ToolRunner
	Printer Printer
	Logger  zerolog.Logger
	// Parallel dispatches the calls of one pause concurrently. Outputs are
	// still submitted once, in request order; printing waits for the batch.
	Parallel bool
}

// NewController creates a new Controller
func NewController(cfg Config) (*Controller, error) {
	observability.EnsureRegistered()

	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool runner is required")
	}
	if cfg.Printer == nil {
		return nil, fmt.Errorf("printer is required")
	}

	return &Controller{
		backend:  cfg.Backend,
		tools:    cfg.Tools,
		printer:  cfg.Printer,
		logger:   cfg.Logger,
		parallel: cfg.Parallel,
		now:      time.Now,
	}, nil
}

// Ask posts a user message and streams the run until it completes.
// Backend failures abort the turn and are returned; a failure to record
// the thread's update time afterwards is only printed.
func (c *Controller) Ask(ctx context.Context, assistantID, threadID, message string) (err error) {
	ctx = tracing.NewTurnContext(ctx, assistantID, threadID)
	ctx, span := tracing.StartSpan(
		ctx,
		"ttyg.agent",
		"agent.turn",
		attribute.String("assistant_id", assistantID),
		attribute.String("thread_id", threadID),
	)
	logger := tracing.LoggerFromContext(ctx, c.logger)
	start := time.Now()
	defer func() {
		observability.RecordTurn(time.Since(start), err == nil)
		tracing.EndSpan(span, err)
	}()

	if err := c.backend.AddUserMessage(ctx, threadID, message); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	stream, err := c.backend.StreamRun(ctx, threadID, assistantID)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	if err := c.consume(ctx, stream, logger); err != nil {
		logger.Error().Err(err).Msg("Turn failed")
		return err
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("Turn completed")
	c.touch(ctx, threadID, logger)
	return nil
}

// consume drains one stream. A requires_action pause is answered and the
// resulting stream consumed before this one continues, so each submission
// gets its own consumer.
func (c *Controller) consume(ctx context.Context, stream assistant.Stream, logger zerolog.Logger) error {
	defer stream.Close()

	for stream.Next() {
		ev := stream.Current()
		switch ev.Kind {
		case assistant.EventTextDelta:
			c.printer.AssistantDelta(ev.Text)

		case assistant.EventTextDone:
			c.printer.AssistantDone()

		case assistant.EventRequiresAction:
			outputs := c.dispatch(ctx, ev, logger)

			next, err := c.backend.SubmitToolOutputs(ctx, ev.Run, outputs)
			if err != nil {
				return fmt.Errorf("failed to submit tool outputs: %w", err)
			}
			observability.RecordToolSubmission()
			logger.Debug().Str("run_id", ev.Run.ID).Int("outputs", len(outputs)).Msg("Tool outputs submitted")

			if err := c.consume(ctx, next, logger); err != nil {
				return err
			}

		case assistant.EventRunFailed:
			return &RunFailedError{RunID: ev.Run.ID, Reason: ev.Text}

		case assistant.EventError:
			return fmt.Errorf("stream error: %s", ev.Text)
		}
	}

	return stream.Err()
}

type callResult struct {
	output string
	ok     bool
}

// dispatch runs every call of a pause and returns the outputs to submit,
// in request order, skipping calls that produced no output.
func (c *Controller) dispatch(ctx context.Context, ev assistant.Event, logger zerolog.Logger) []assistant.ToolOutput {
	calls := ev.ToolCalls
	results := make([]callResult, len(calls))
	agentID := ev.Run.AssistantID

	if c.parallel {
		var g errgroup.Group
		for i, call := range calls {
			g.Go(func() error {
				out, ok := c.tools.Call(ctx, agentID, call.Name, call.Arguments)
				results[i] = callResult{output: out, ok: ok}
				return nil
			})
		}
		_ = g.Wait()
		for i, call := range calls {
			c.show(call, results[i], logger)
		}
	} else {
		for i, call := range calls {
			out, ok := c.tools.Call(ctx, agentID, call.Name, call.Arguments)
			results[i] = callResult{output: out, ok: ok}
			c.show(call, results[i], logger)
		}
	}

	outputs := make([]assistant.ToolOutput, 0, len(calls))
	for i, call := range calls {
		if !results[i].ok {
			continue
		}
		outputs = append(outputs, assistant.ToolOutput{CallID: call.ID, Output: results[i].output})
	}
	return outputs
}

func (c *Controller) show(call assistant.ToolCall, res callResult, logger zerolog.Logger) {
	if !res.ok {
		logger.Warn().Str("tool", call.Name).Str("call_id", call.ID).Msg("Tool call produced no output")
		return
	}
	c.printer.ToolOutput(newToolResult(call.Name, res.output))
}

func (c *Controller) touch(ctx context.Context, threadID string, logger zerolog.Logger) {
	if _, err := c.backend.UpdateThread(ctx, threadID, assistant.TouchUpdate(c.now())); err != nil {
		logger.Warn().Err(err).Msg("Failed to update thread time")
		c.printer.Error(">>> " + assistant.APIMessage(err))
	}
}
