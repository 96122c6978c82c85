// Package client wires configuration, backends and the terminal into a
// runnable chat session.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/harun/ttyg/internal/config"
	"github.com/harun/ttyg/internal/console"
	"github.com/harun/ttyg/internal/logger"
	"github.com/harun/ttyg/internal/observability"
	"github.com/harun/ttyg/internal/tracing"
	"github.com/harun/ttyg/pkg/access"
	"github.com/harun/ttyg/pkg/agent"
	"github.com/harun/ttyg/pkg/assistant"
	"github.com/harun/ttyg/pkg/session"
	"github.com/harun/ttyg/pkg/threadstore"
	"github.com/harun/ttyg/pkg/toolexecutor"
)

// Client owns every component of one chat process
type Client struct {
	config  *config.Config
	logger  *logger.Logger
	console *console.Console

	backend    assistant.Backend
	registry   *threadstore.Store
	tools      *toolexecutor.Executor
	controller *agent.Controller
	shell      *session.Shell

	tracingEnabled bool
}

var newBackend = func(cfg *config.Config, log *logger.Logger) assistant.Backend {
	return assistant.NewOpenAIBackend(assistant.OpenAIConfig{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.APIURL,
		AzureAPIVersion: cfg.OpenAI.AzureAPIVersion,
		Azure:           cfg.IsAzure(),
	}, log.Zerolog())
}

// New creates a client writing to out
func New(cfg *config.Config, log *logger.Logger, out io.Writer) (*Client, error) {
	observability.EnsureRegistered()
	c := &Client{
		config:  cfg,
		logger:  log,
		console: console.New(out, false),
	}

	if err := tracing.InitOpenTelemetry("ttyg-client"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		c.tracingEnabled = true
	}

	if err := c.initialize(); err != nil {
		c.shutdownTracing(context.Background())
		return nil, err
	}
	return c, nil
}

// initialize builds components in dependency order
func (c *Client) initialize() error {
	zl := c.logger.Zerolog()

	registry, err := threadstore.Open(c.config.ThreadsFile)
	if err != nil {
		return fmt.Errorf("failed to open thread registry: %w", err)
	}
	c.registry = registry
	zl.Info().Str("path", registry.Path()).Msg("Thread registry opened")

	c.backend = newBackend(c.config, c.logger)
	zl.Info().Bool("azure", c.config.IsAzure()).Msg("Assistants backend initialized")

	c.tools = toolexecutor.New(toolexecutor.Config{
		BaseURL:    c.config.GraphDB.URL,
		Username:   c.config.GraphDB.Username,
		Password:   c.config.GraphDB.Password,
		AuthHeader: c.config.GraphDB.AuthHeader,
	}, toolexecutor.WithReporter(c.console), toolexecutor.WithLogger(zl))
	zl.Info().Str("graphdb_url", c.config.GraphDB.URL).Msg("Tool executor initialized")

	controller, err := agent.NewController(agent.Config{
		Backend:  c.backend,
		Tools:    c.tools,
		Printer:  c.console,
		Logger:   zl,
		Parallel: c.config.ParallelTools,
	})
	if err != nil {
		return fmt.Errorf("failed to create run controller: %w", err)
	}
	c.controller = controller

	c.shell = session.NewShell(session.Config{
		Backend:  c.backend,
		Guard:    access.NewGuard(c.config.GraphDB.InstallationID, c.config.GraphDB.Username),
		Registry: c.registry,
		Turns:    c.controller,
		Printer:  c.console,
		Logger:   zl,
	})
	return nil
}

// Chat runs the interactive session reading lines from in until a blank
// line, end of input or cancellation.
func (c *Client) Chat(ctx context.Context, assistantID, threadID string, in io.Reader) error {
	if addr := c.config.Metrics.Address; addr != "" {
		observability.Serve(ctx, addr, c.logger.Zerolog())
	}

	c.logger.Info().
		Str("assistant_id", assistantID).
		Str("thread_id", threadID).
		Msg("Chat started")

	return c.shell.Run(ctx, assistantID, threadID, readLines(ctx, in))
}

// Usage prints command-line usage followed by what the user can pick from
func (c *Client) Usage(ctx context.Context, program string) {
	c.console.Usage(program)
	c.shell.ListAssistantsAndThreads(ctx)
}

// Close flushes tracing. The logger is owned by the caller.
func (c *Client) Close(ctx context.Context) error {
	return c.shutdownTracing(ctx)
}

func (c *Client) shutdownTracing(ctx context.Context) error {
	if !c.tracingEnabled {
		return nil
	}
	c.tracingEnabled = false
	return tracing.ShutdownOpenTelemetry(ctx)
}

// readLines feeds lines from r until EOF or ctx is done. The reader
// goroutine may stay blocked on r after ctx is cancelled.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
