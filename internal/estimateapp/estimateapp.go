// internal/estimateapp/estimateapp.go
package estimateapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"phydiff/internal/cliutil"
	"phydiff/internal/config"
	"phydiff/internal/difficulty"
	"phydiff/internal/features"
	"phydiff/internal/logging"
	"phydiff/internal/model"
	"phydiff/internal/msa"
)

type options struct {
	replicates int
	alphabet   string
	format     string
	modelFile  string
	features   bool
	log        cliutil.LogFlags
}

// NewCommand builds the phydiff command.
func NewCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "phydiff <alignment>",
		Short: "Estimate the phylogenetic difficulty of one alignment",
		Example: `  phydiff data/exon_9604.fasta
  phydiff --replicates 20 --features data/aln.phy --format phylip`,
		Args: cliutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.IntVarP(&o.replicates, "replicates", "n", difficulty.DefaultReplicates, "parsimony trees in the ensemble")
	f.StringVar(&o.alphabet, "alphabet", config.AlphabetAuto, "residue alphabet: auto | nucleotide | protein")
	f.StringVar(&o.format, "format", string(msa.FormatFASTA), "alignment format: fasta | phylip")
	f.StringVar(&o.modelFile, "model", "", "YAML file with difficulty model weights")
	f.BoolVar(&o.features, "features", false, "also print the feature vector")
	o.log.Register(cmd)
	return cmd
}

func run(ctx context.Context, o options, path string, stdout, stderr io.Writer) error {
	log, err := o.log.Logger(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	format, err := msa.ParseFormat(o.format)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	w := model.DefaultWeights()
	if o.modelFile != "" {
		if w, err = model.LoadWeights(o.modelFile); err != nil {
			return cliutil.Exit(cliutil.ExitConfig, err)
		}
	}
	m, err := model.NewLogistic(w)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	alphabet, err := resolveAlphabet(ctx, o.alphabet, path, format)
	if err != nil {
		return err
	}

	est := difficulty.NewEstimator(difficulty.Native(m), log)
	res, err := est.Estimate(ctx, path, difficulty.Options{Replicates: o.replicates, Alphabet: alphabet, Format: format})
	if err != nil {
		if errors.Is(err, difficulty.ErrPrecondition) {
			return cliutil.Exit(cliutil.ExitConfig, err)
		}
		return err
	}
	log.Debug("estimate finished", logging.String("path", path), logging.Int("unique_topologies", res.CountUnique))

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "difficulty\t%.2f\n", res.Difficulty)
	fmt.Fprintf(tw, "avg_rel_rf\t%.4f\n", res.AvgRelativeRF)
	fmt.Fprintf(tw, "unique_topology_proportion\t%.4f\n", res.UniqueTopologyProportion)
	if o.features {
		for i, v := range res.Features {
			fmt.Fprintf(tw, "%s\t%.6g\n", features.Name(i), v)
		}
	}
	return tw.Flush()
}

// resolveAlphabet reads the file's classification for "auto".
func resolveAlphabet(ctx context.Context, s, path string, format msa.Format) (msa.Alphabet, error) {
	if s != config.AlphabetAuto {
		a, err := msa.ParseAlphabet(s)
		if err != nil {
			return 0, cliutil.Exit(cliutil.ExitConfig, err)
		}
		return a, nil
	}
	dims, err := msa.ReadDimensionsFormat(ctx, path, format)
	if err != nil {
		return 0, &difficulty.LoadError{Path: path, Err: err}
	}
	return dims.Alphabet, nil
}

// RunContext executes phydiff with argv and returns the exit code.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return cliutil.Execute(ctx, NewCommand(), argv, stdout, stderr)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
