package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/pathwatch/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	logLevel    string
	errorFormat string
	noColor     bool
}

func main() {
	var flags globalFlags
	if err := newRootCmd(&flags).Execute(); err != nil {
		report(os.Stderr, &flags, err)
		os.Exit(1)
	}
}

// report prints err in the style chosen by --error-format. An unknown
// style has already failed flag validation, so it falls back to text.
func report(w io.Writer, flags *globalFlags, err error) {
	style, perr := errors.ParseStyle(flags.errorFormat)
	if perr != nil {
		style = errors.StyleText
	}
	errors.Printer{Style: style, Color: !flags.noColor}.Print(w, err)
}

func newRootCmd(flags *globalFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pathwatch",
		Short: "Path-aware change tracking for JSON documents",
		Long: `pathwatch instruments a JSON document so that every read and write
is reported as a path from the document root.

Replay a script of reads and writes against a document and print what
each step emitted, or serve the document over HTTP with a WebSocket
change feed that can be gated on the paths a client depends on.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := errors.ParseStyle(flags.errorFormat)
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to pathwatch.json (default ./pathwatch.json if present)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.errorFormat, "error-format", "text", "Error output: text, compact, json")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colors in text error output")

	rootCmd.AddCommand(
		replayCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}
