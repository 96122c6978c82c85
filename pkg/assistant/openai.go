package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

// OpenAIConfig selects and authenticates the Assistants endpoint
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the default endpoint; an azure.com URL switches to Azure OpenAI
	BaseURL         string
	AzureAPIVersion string
	Azure           bool
}

// OpenAIBackend implements Backend over the OpenAI (or Azure OpenAI) Assistants API
type OpenAIBackend struct {
	client openai.Client
	logger zerolog.Logger
}

// NewOpenAIBackend creates the backend client
func NewOpenAIBackend(cfg OpenAIConfig, logger zerolog.Logger, opts ...option.RequestOption) *OpenAIBackend {
	var base []option.RequestOption
	switch {
	case cfg.Azure:
		base = append(base,
			azure.WithEndpoint(cfg.BaseURL, cfg.AzureAPIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case cfg.BaseURL != "":
		base = append(base, option.WithAPIKey(cfg.APIKey), option.WithBaseURL(cfg.BaseURL))
	default:
		base = append(base, option.WithAPIKey(cfg.APIKey))
	}

	return &OpenAIBackend{
		client: openai.NewClient(append(base, opts...)...),
		logger: logger,
	}
}

// APIMessage returns the message the backend attached to a failed request,
// falling back to the error text for transport failures.
func APIMessage(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func (b *OpenAIBackend) GetAssistant(ctx context.Context, assistantID string) (*Assistant, error) {
	a, err := b.client.Beta.Assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, wrapError(err)
	}
	return convertAssistant(*a), nil
}

func (b *OpenAIBackend) ListAssistants(ctx context.Context, limit int) ([]Assistant, error) {
	page, err := b.client.Beta.Assistants.List(ctx, openai.BetaAssistantListParams{
		Limit: openai.Int(int64(limit)),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	out := make([]Assistant, 0, len(page.Data))
	for _, a := range page.Data {
		out = append(out, *convertAssistant(a))
	}
	return out, nil
}

func (b *OpenAIBackend) CreateThread(ctx context.Context, metadata ThreadMetadata) (*Thread, error) {
	t, err := b.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{
		Metadata: shared.Metadata(metadata),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return convertThread(*t), nil
}

func (b *OpenAIBackend) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	t, err := b.client.Beta.Threads.Get(ctx, threadID)
	if err != nil {
		return nil, wrapError(err)
	}
	return convertThread(*t), nil
}

func (b *OpenAIBackend) UpdateThread(ctx context.Context, threadID string, metadata ThreadMetadata) (*Thread, error) {
	t, err := b.client.Beta.Threads.Update(ctx, threadID, openai.BetaThreadUpdateParams{
		Metadata: shared.Metadata(metadata),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return convertThread(*t), nil
}

func (b *OpenAIBackend) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := b.client.Beta.Threads.Delete(ctx, threadID); err != nil {
		return wrapError(err)
	}
	return nil
}

func (b *OpenAIBackend) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := b.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	return wrapError(err)
}

func (b *OpenAIBackend) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	page, err := b.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Limit: openai.Int(int64(limit)),
		Order: openai.BetaThreadMessageListParamsOrderDesc,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	out := make([]Message, 0, len(page.Data))
	for _, m := range page.Data {
		msg := Message{Role: Role(m.Role)}
		for _, c := range m.Content {
			if c.Type == "text" {
				msg.Texts = append(msg.Texts, c.Text.Value)
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

func (b *OpenAIBackend) StreamRun(ctx context.Context, threadID, assistantID string) (Stream, error) {
	s := b.client.Beta.Threads.Runs.NewStreaming(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	return newEventStream(s, b.logger), nil
}

func (b *OpenAIBackend) SubmitToolOutputs(ctx context.Context, run Run, outputs []ToolOutput) (Stream, error) {
	params := openai.BetaThreadRunSubmitToolOutputsParams{
		ToolOutputs: make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, 0, len(outputs)),
	}
	for _, o := range outputs {
		params.ToolOutputs = append(params.ToolOutputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(o.CallID),
			Output:     openai.String(o.Output),
		})
	}
	s := b.client.Beta.Threads.Runs.SubmitToolOutputsStreaming(ctx, run.ThreadID, run.ID, params)
	return newEventStream(s, b.logger), nil
}

func (b *OpenAIBackend) LatestRun(ctx context.Context, threadID string) (*Run, error) {
	page, err := b.client.Beta.Threads.Runs.List(ctx, threadID, openai.BetaThreadRunListParams{
		Limit: openai.Int(1),
		Order: openai.BetaThreadRunListParamsOrderDesc,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if len(page.Data) == 0 {
		return nil, nil
	}
	r := page.Data[0]
	return &Run{ID: r.ID, ThreadID: r.ThreadID, AssistantID: r.AssistantID}, nil
}

func (b *OpenAIBackend) RunToolCalls(ctx context.Context, run Run) ([]ToolCall, error) {
	page, err := b.client.Beta.Threads.Runs.Steps.List(ctx, run.ThreadID, run.ID, openai.BetaThreadRunStepListParams{})
	if err != nil {
		return nil, wrapError(err)
	}
	var calls []ToolCall
	for _, step := range page.Data {
		if step.StepDetails.Type != "tool_calls" {
			continue
		}
		for _, tc := range step.StepDetails.ToolCalls {
			// code_interpreter and file_search calls carry no function
			if tc.Type != "function" {
				continue
			}
			calls = append(calls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return calls, nil
}

func convertAssistant(a openai.Assistant) *Assistant {
	return &Assistant{
		ID:       a.ID,
		Name:     a.Name,
		Metadata: AssistantMetadata(a.Metadata),
	}
}

func convertThread(t openai.Thread) *Thread {
	return &Thread{
		ID:       t.ID,
		Metadata: ThreadMetadata(t.Metadata),
	}
}

// eventStream adapts the SDK's SSE stream to Stream. One SDK event can
// expand to several Events (a completed message with several text blocks)
// or to none (lifecycle events the client does not care about).
type eventStream struct {
	sse     *ssestream.Stream[openai.AssistantStreamEventUnion]
	logger  zerolog.Logger
	pending []Event
	current Event
}

func newEventStream(sse *ssestream.Stream[openai.AssistantStreamEventUnion], logger zerolog.Logger) *eventStream {
	return &eventStream{sse: sse, logger: logger}
}

func (s *eventStream) Next() bool {
	for len(s.pending) == 0 {
		if !s.sse.Next() {
			return false
		}
		ev := s.sse.Current()
		s.logger.Debug().Str("event", ev.Event).Msg("Assistant stream event")
		s.pending = translateEvent(ev)
	}
	s.current = s.pending[0]
	s.pending = s.pending[1:]
	return true
}

func (s *eventStream) Current() Event {
	return s.current
}

func (s *eventStream) Err() error {
	return s.sse.Err()
}

func (s *eventStream) Close() error {
	return s.sse.Close()
}

func translateEvent(ev openai.AssistantStreamEventUnion) []Event {
	switch ev.Event {
	case "thread.message.delta":
		delta := ev.AsThreadMessageDelta().Data
		var out []Event
		for _, c := range delta.Delta.Content {
			if c.Type == "text" && c.Text.Value != "" {
				out = append(out, Event{Kind: EventTextDelta, Text: c.Text.Value})
			}
		}
		return out

	case "thread.message.completed":
		msg := ev.AsThreadMessageCompleted().Data
		var out []Event
		for _, c := range msg.Content {
			if c.Type == "text" {
				out = append(out, Event{Kind: EventTextDone, Text: c.Text.Value})
			}
		}
		return out

	case "thread.run.requires_action":
		run := ev.AsThreadRunRequiresAction().Data
		event := Event{
			Kind: EventRequiresAction,
			Run:  Run{ID: run.ID, ThreadID: run.ThreadID, AssistantID: run.AssistantID},
		}
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			event.ToolCalls = append(event.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return []Event{event}

	case "thread.run.failed":
		run := ev.AsThreadRunFailed().Data
		return []Event{runFailed(run, run.LastError.Message)}

	case "thread.run.expired":
		return []Event{runFailed(ev.AsThreadRunExpired().Data, "run expired")}

	case "thread.run.cancelled":
		return []Event{runFailed(ev.AsThreadRunCancelled().Data, "run cancelled")}

	case "error":
		return []Event{{Kind: EventError, Text: ev.AsErrorEvent().Data.Message}}
	}

	return nil
}

func runFailed(run openai.Run, reason string) Event {
	if reason == "" {
		reason = string(run.Status)
	}
	return Event{
		Kind: EventRunFailed,
		Text: reason,
		Run:  Run{ID: run.ID, ThreadID: run.ThreadID, AssistantID: run.AssistantID},
	}
}
