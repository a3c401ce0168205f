package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds the flags every command sees.
type RootOptions struct {
	Verbose   bool
	Format    string // result format: "text" or "json"
	LogFormat string // slog handler: "text" or "json"
}

// ValidFormats lists the accepted values of --format and --log-format.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the eqsat command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eqsat",
		Short: "eqsat - equality saturation with declarative rewrite rules",
		Long: `Compile rewrite rules written in CUE, saturate e-graphs with them,
and inspect the recorded runs.

Results go to stdout in --format; logs go to stderr in --log-format.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, value := range map[string]string{"format": opts.Format, "log-format": opts.LogFormat} {
				if !isValidFormat(value) {
					return NewExitError(ExitCommandError,
						fmt.Sprintf("invalid %s %q: must be one of %v", flag, value, ValidFormats))
				}
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), opts))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logs")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (json|text)")

	for _, sub := range []func(*RootOptions) *cobra.Command{
		NewCompileCommand,
		NewValidateCommand,
		NewRunCommand,
		NewProveCommand,
		NewReplayCommand,
		NewTestCommand,
		NewTraceCommand,
	} {
		cmd.AddCommand(sub(opts))
	}

	return cmd
}

// newLogger builds the process logger. Rules warn when they hit their
// application limit; per-iteration detail is logged at debug level, which
// --verbose enables.
func newLogger(w io.Writer, opts *RootOptions) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
