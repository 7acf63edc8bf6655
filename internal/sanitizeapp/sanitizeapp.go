// internal/sanitizeapp/sanitizeapp.go
package sanitizeapp

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"phydiff/internal/cliutil"
	"phydiff/internal/discovery"
	"phydiff/internal/sanitize"
)

type options struct {
	removeOriginal bool
	threads        int
	log            cliutil.LogFlags
}

// NewCommand builds the phydiff-sanitize command.
func NewCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "phydiff-sanitize <root-directory>",
		Short: "Replace non-nucleotide residues with gaps in every alignment below a directory",
		Long: `phydiff-sanitize writes <name>.processed.fasta next to every discovered
alignment, with each residue outside A/C/G/T (either case), '-' and '_'
replaced by '-'. Originals are kept unless --remove-original is given.`,
		Args: cliutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&o.removeOriginal, "remove-original", false, "delete each input once its output is written")
	cmd.Flags().IntVarP(&o.threads, "threads", "t", 0, "files processed in parallel (0=all CPUs)")
	o.log.Register(cmd)
	return cmd
}

func run(ctx context.Context, o options, root string, stdout, stderr io.Writer) error {
	log, err := o.log.Logger(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	paths, err := discovery.Discover(ctx, root)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	workers := o.threads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	res, err := sanitize.Run(ctx, paths, sanitize.Options{RemoveOriginal: o.removeOriginal, Workers: workers}, log)
	if err != nil {
		return err
	}
	records := 0
	for _, r := range res {
		records += r.Records
	}
	_, err = fmt.Fprintf(stdout, "sanitized %d files (%d records)\n", len(res), records)
	return err
}

// RunContext executes phydiff-sanitize with argv and returns the exit code.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return cliutil.Execute(ctx, NewCommand(), argv, stdout, stderr)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
