package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/recipient-mailer/internal/config"
	"github.com/example/recipient-mailer/internal/logger"
	emailprovider "github.com/example/recipient-mailer/internal/providers/email"
	"github.com/example/recipient-mailer/internal/providers/factory"
)

// TransportFactory builds the outbound transport for the given provider settings.
type TransportFactory func(cfg config.ProviderConfig, logger zerolog.Logger) (emailprovider.Transport, error)

// Config wires the command tree to its environment.
type Config struct {
	// OutputWriter receives progress lines and the failure summary.
	OutputWriter io.Writer
	// LogWriter receives structured logs.
	LogWriter io.Writer
	// DefaultRecipients is used when --recipients is not given.
	DefaultRecipients []byte
	NewTransport      TransportFactory
}

type runtimeState struct {
	envFile      string
	cfg          *config.Config
	log          zerolog.Logger
	out          io.Writer
	logOut       io.Writer
	defaultList  []byte
	newTransport TransportFactory
}

// DefaultConfig returns the process level wiring.
func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
		LogWriter:    os.Stderr,
		NewTransport: factory.Email,
	}
}

// NewRootCommand builds the mailer command tree.
func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		out:          cfg.OutputWriter,
		logOut:       cfg.LogWriter,
		defaultList:  cfg.DefaultRecipients,
		newTransport: cfg.NewTransport,
	}
	if rt.out == nil {
		rt.out = os.Stdout
	}
	if rt.logOut == nil {
		rt.logOut = os.Stderr
	}
	if rt.newTransport == nil {
		rt.newTransport = factory.Email
	}

	send := NewSendCommand(rt)

	root := &cobra.Command{
		Use:   "mailer",
		Short: "Send one plaintext email per recipient over a single SMTP session",
		Long: `Send one plaintext email per recipient over a single SMTP session.

Without a subcommand mailer runs send with its default flags against the
bundled recipient list.`,
		Args:          cobra.NoArgs,
		RunE:          send.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return rt.load()
		},
	}
	root.SetOut(rt.out)
	root.SetErr(rt.logOut)

	root.PersistentFlags().StringVar(&rt.envFile, "env-file", "", "Load environment variables from this file instead of .env")

	root.AddCommand(
		send,
		NewCheckCommand(rt),
	)

	return root
}

// load reads the configuration and builds the logger. It runs before any
// subcommand touches the recipient file or the network.
func (rt *runtimeState) load() error {
	var files []string
	if rt.envFile != "" {
		files = append(files, rt.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	base, err := logger.New(cfg.App.Env, cfg.App.LogLevel, rt.logOut)
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.log = base.With().Str("service", "mailer").Logger()
	return nil
}

func (rt *runtimeState) componentLogger(name string) zerolog.Logger {
	return rt.log.With().Str("component", name).Logger()
}
