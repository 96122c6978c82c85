package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harun/ttyg/internal/client"
	"github.com/harun/ttyg/internal/config"
	"github.com/harun/ttyg/internal/logger"
	"github.com/harun/ttyg/pkg/session"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// ConfigFileEnv names the variable that overrides the config file path
const ConfigFileEnv = "TTYG_CONFIG_FILE"

// ErrUsage is returned when the positional arguments are wrong. Usage has
// already been printed.
var ErrUsage = errors.New("invalid arguments")

// chatClient is the part of client.Client the command drives
type chatClient interface {
	Chat(ctx context.Context, assistantID, threadID string, in io.Reader) error
	Usage(ctx context.Context, program string)
	Close(ctx context.Context) error
}

// newClient loads configuration and builds the client. The returned
// cleanup closes the log file.
var newClient = func(out io.Writer) (chatClient, func(), error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.NewLoader(os.Getenv(ConfigFileEnv)).Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Debug().Str("version", version).Str("config", cfg.String()).Msg("Configuration loaded")

	c, err := client.New(cfg, log, out)
	if err != nil {
		_ = log.Close()
		return nil, nil, err
	}
	return c, func() { _ = log.Close() }, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ttyg <assistant-id> (<thread-id>|new)",
	Short: "GraphDB Talk to Your Graph client",
	Long: `ttyg chats with a GraphDB Talk to Your Graph agent from the terminal.
Questions are answered by an OpenAI assistant that queries GraphDB through
the TTYG tool endpoints.

You can provide an existing thread ID, or the special value 'new' to create
a new thread.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, cleanup, err := newClient(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer cleanup()
	defer c.Close(context.Background())

	if len(args) != 2 {
		c.Usage(ctx, cmd.Name())
		return ErrUsage
	}

	err = c.Chat(ctx, args[0], args[1], cmd.InOrStdin())
	if errors.Is(err, session.ErrNotStarted) {
		// the reason was printed to the user
		return nil
	}
	return err
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
