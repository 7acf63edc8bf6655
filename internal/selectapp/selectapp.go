// internal/selectapp/selectapp.go
package selectapp

import (
	"bufio"
	"context"
	"io"

	"github.com/spf13/cobra"

	"phydiff/internal/cliutil"
	"phydiff/internal/report"
)

// NewCommand builds the phydiff-select command.
func NewCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "phydiff-select <eval.csv>",
		Short: "List uniform-length nucleotide alignments from a report, smallest first",
		Example: `  phydiff-select eval.csv
  phydiff-select --format csv eval.csv > selected.csv`,
		Args: cliutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(format, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tsv", "output format: csv | jsonl | tsv")
	return cmd
}

func run(format, path string, stdout io.Writer) error {
	if _, ok := report.Writers[format]; !ok {
		return cliutil.Exit(cliutil.ExitConfig, report.Write(format, io.Discard, nil))
	}
	rows, err := report.ReadCSVFile(path)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	bw := bufio.NewWriter(stdout)
	if err := report.Write(format, bw, report.Select(rows)); err != nil {
		return err
	}
	return bw.Flush()
}

// RunContext executes phydiff-select with argv and returns the exit code.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return cliutil.Execute(ctx, NewCommand(), argv, stdout, stderr)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
