package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/pathwatch/internal/script"
	"github.com/vango-dev/pathwatch/pkg/depmon"
)

func replayCmd(flags *globalFlags) *cobra.Command {
	var (
		docPath  string
		asJSON   bool
		printDoc bool
	)

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Run a script of reads and writes against a document",
		Long: `Replay loads a JSON document, runs each step of a YAML script against
it, and prints every event the root channel and each monitor session
emitted, labelled by step.

A script is a list of steps:

  - op: monitor
    name: view
    reads: [b.c, d]
  - op: set
    path: b.c
    value: 2
  - op: get
    path: a
  - op: delete
    path: d
  - op: unmonitor
    name: view

Examples:
  pathwatch replay --doc doc.json steps.yaml
  pathwatch replay --doc doc.json --json steps.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			root, err := e.loadDocument(docPath)
			if err != nil {
				return err
			}
			s, err := script.Load(args[0])
			if err != nil {
				return err
			}

			runner := script.NewRunner(root, e.logger,
				depmon.WithLogger(e.logger),
				depmon.WithMetrics(e.metrics),
			)
			defer runner.Close()

			transcript, runErr := runner.Run(cmd.Context(), s)

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(transcript, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else if err := transcript.Write(out); err != nil {
				return err
			}

			if runErr != nil {
				return runErr
			}
			if printDoc {
				data, err := json.MarshalIndent(root.Snapshot(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&docPath, "doc", "d", "", "JSON document to load")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as JSON")
	cmd.Flags().BoolVar(&printDoc, "print-doc", false, "Print the document after the script ran")
	cmd.MarkFlagRequired("doc")

	return cmd
}
