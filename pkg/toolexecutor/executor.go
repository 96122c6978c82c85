package toolexecutor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harun/ttyg/internal/observability"
	"github.com/harun/ttyg/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTimeout bounds every tool call
const DefaultTimeout = 60 * time.Second

const textPlain = "text/plain;charset=UTF-8"

// Config holds the GraphDB endpoint and credentials
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	AuthHeader string
	Timeout    time.Duration
}

// Reporter receives the diagnostics shown to the user when a call fails
type Reporter interface {
	Error(text string)
}

// Executor calls TTYG query methods over HTTP
type Executor struct {
	cfg      Config
	client   *http.Client
	reporter Reporter
	logger   zerolog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithHTTPClient replaces the HTTP client; its Timeout is overridden by Config.Timeout
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		e.client = client
	}
}

// WithReporter sets where failure diagnostics are printed
func WithReporter(r Reporter) Option {
	return func(e *Executor) {
		e.reporter = r
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates a new Executor
func New(cfg Config, opts ...Option) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	e := &Executor{
		cfg:    cfg,
		client: &http.Client{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	client := *e.client
	client.Timeout = cfg.Timeout
	e.client = &client

	return e
}

// FailureMessage is the output handed to the model when a tool call fails
func FailureMessage(toolName string) string {
	return fmt.Sprintf("Fatal error calling tool %s. Do not retry and inform the user.", toolName)
}

// URL returns the endpoint of one query method of an agent
func (e *Executor) URL(agentID, toolName string) string {
	return fmt.Sprintf("%s/rest/ttyg/agents/%s/%s", e.cfg.BaseURL, url.PathEscape(agentID), url.PathEscape(toolName))
}

// Call executes one tool call. ok is false only when ctx was already done,
// in which case there is no output to submit. All other failures return
// FailureMessage with ok true.
func (e *Executor) Call(ctx context.Context, agentID, toolName, args string) (output string, ok bool) {
	if ctx.Err() != nil {
		return "", false
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"ttyg.toolexecutor",
		"tool.call",
		attribute.String("tool", toolName),
		attribute.String("assistant_id", agentID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, e.logger).With().Str("tool", toolName).Logger()

	start := time.Now()
	output, err := e.post(ctx, agentID, toolName, args)
	duration := time.Since(start)
	observability.RecordToolExecution(toolName, duration, err == nil, len(output))

	if err != nil {
		logger.Warn().Err(err).Dur("duration", duration).Msg("Tool call failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.report(err)
		return FailureMessage(toolName), true
	}

	logger.Debug().Dur("duration", duration).Int("output_len", len(output)).Msg("Tool call succeeded")
	return output, true
}

// statusError is a non-200 answer from GraphDB
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.code)
}

// connectionError is any failure to get a response, timeouts included
type connectionError struct {
	err error
}

func (e *connectionError) Error() string {
	return fmt.Sprintf("Connection error: %v", e.err)
}

func (e *connectionError) Unwrap() error { return e.err }

func (e *Executor) post(ctx context.Context, agentID, toolName, args string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL(agentID, toolName), strings.NewReader(args))
	if err != nil {
		return "", &connectionError{err: err}
	}
	req.Header.Set("Content-Type", textPlain)
	req.Header.Set("Accept", textPlain)
	e.authenticate(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &connectionError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &connectionError{err: err}
	}
	return string(body), nil
}

// authenticate applies the first configured scheme: raw header, basic, none
func (e *Executor) authenticate(req *http.Request) {
	switch {
	case e.cfg.AuthHeader != "":
		req.Header.Set("Authorization", e.cfg.AuthHeader)
	case e.cfg.Password != "":
		req.SetBasicAuth(e.cfg.Username, e.cfg.Password)
	}
}

func (e *Executor) report(err error) {
	if e.reporter != nil {
		e.reporter.Error(">>> " + err.Error())
	}
}
