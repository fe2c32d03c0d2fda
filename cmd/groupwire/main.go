// Command groupwire encodes, decodes and inspects group messages.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/groupwire/internal/config"
	"github.com/vango-dev/groupwire/internal/errors"
	"github.com/vango-dev/groupwire/pkg/headers"
	"github.com/vango-dev/groupwire/pkg/message"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalOptions are the persistent root flags.
type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// env is the state every subcommand runs with.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(errors.FromError(err, "G099"))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		opts globalOptions
		e    env
	)

	rootCmd := &cobra.Command{
		Use:   "groupwire",
		Short: "Encode, decode and inspect group communication messages",
		Long: `groupwire works with the binary message format used between
cluster members: an envelope with optional addresses, flags and
per-protocol headers, followed by a byte or object payload.

Configuration is read from groupwire.toml, the file named by
GROUPWIRE_CONFIG, or --config. Flags override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				errors.DisableColors()
			}
			cfg, err := config.Resolve(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			e.cfg = cfg
			e.logger = cfg.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(e.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default groupwire.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		encodeCmd(&e),
		decodeCmd(&e),
		serveCmd(&e),
		versionCmd(),
	)
	return rootCmd
}

// newCodec builds a codec from the configuration, with the generic headers
// registered.
func (e *env) newCodec(opts ...message.CodecOption) (*message.Codec, error) {
	m, err := e.cfg.NewMarshaller()
	if err != nil {
		return nil, err
	}
	base := []message.CodecOption{
		message.WithMarshaller(m),
		message.WithLimits(e.cfg.Limits()),
		message.WithLogger(e.logger),
	}
	return message.NewCodec(headers.NewRegistry(), append(base, opts...)...), nil
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
