// internal/evalapp/evalapp.go
package evalapp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"phydiff/internal/cliutil"
	"phydiff/internal/config"
	"phydiff/internal/difficulty"
	"phydiff/internal/discovery"
	"phydiff/internal/harness"
	"phydiff/internal/logging"
	"phydiff/internal/metrics"
	"phydiff/internal/model"
	"phydiff/internal/msa"
	"phydiff/internal/reftools"
	"phydiff/internal/report"
)

// flag name → config key
var bindings = map[string]string{
	"predict-difficulty": "predict_difficulty",
	"run-reference":      "run_reference_aligners",
	"replicates":         "replicates",
	"threads":            "threads",
	"alphabet":           "alphabet",
	"format":             "format",
	"output":             "output",
	"summary":            "summary_file",
	"metrics-file":       "metrics_file",
	"model":              "model_file",
	"log-level":          "log.level",
	"log-format":         "log.format",
}

// NewCommand builds the phydiff-eval command.
func NewCommand() *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "phydiff-eval <root-directory>",
		Short: "Estimate the difficulty of every alignment below a directory",
		Long: `phydiff-eval walks a directory tree for alignments (.fas, .fna, .fasta, .aln),
estimates each one's phylogenetic difficulty from an ensemble of parsimony
trees and writes a CSV report ordered from hardest to easiest. Reference
programs (RAxML, PhyML, Pythia) can be timed on the same files.`,
		Example: `  phydiff-eval data/
  phydiff-eval --replicates 20 --threads 8 --output hard.csv data/
  phydiff-eval --predict-difficulty=false --run-reference data/`,
		Args: cliutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, cfgFile, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "YAML configuration file")
	f.Bool("predict-difficulty", true, "estimate native difficulty")
	f.Bool("run-reference", false, "time the reference programs after estimation")
	f.Int("replicates", difficulty.DefaultReplicates, "parsimony trees per alignment")
	f.IntP("threads", "t", 0, "files processed in parallel (0=all CPUs)")
	f.String("alphabet", config.AlphabetAuto, "residue alphabet: auto | nucleotide | protein")
	f.String("format", string(msa.FormatFASTA), "alignment format: fasta | phylip")
	f.StringP("output", "o", "eval.csv", "report path")
	f.String("summary", "", "write a YAML run summary to this path")
	f.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	f.String("model", "", "YAML file with difficulty model weights")
	f.String("log-level", "info", "log level: debug | info | warn | error")
	f.String("log-format", "console", "log encoding: console | json")
	for flag, key := range bindings {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, v *viper.Viper, cfgFile, root string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	log, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	defer func() { _ = log.Sync() }()

	est, err := newEstimator(cfg, log)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	opts, err := harnessOptions(cfg)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}

	paths, err := discovery.Discover(ctx, root)
	if err != nil {
		return cliutil.Exit(cliutil.ExitConfig, err)
	}
	sum := report.NewSummary(root)
	log.Info("starting evaluation",
		logging.String("run_id", sum.RunID),
		logging.String("root", root),
		logging.Int("files", len(paths)),
		logging.Int("workers", opts.Workers))

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.New()
	}
	h := harness.New(est, references(cfg), log.Named("harness"), rec)
	out, err := h.Evaluate(ctx, paths, opts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return cliutil.Exit(cliutil.ExitFatal, err)
	}

	if err := report.WriteCSVFile(cfg.Output, out.Rows); err != nil {
		return cliutil.Exit(cliutil.ExitFatal, err)
	}
	fillSummary(sum, cfg, out, len(paths))
	if cfg.SummaryFile != "" {
		if err := report.WriteSummaryFile(cfg.SummaryFile, sum); err != nil {
			return cliutil.Exit(cliutil.ExitFatal, err)
		}
	}
	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warn("cannot write metrics", logging.Err(err))
	}

	log.Info("evaluation finished",
		logging.Int("estimated", out.Estimated),
		logging.Int("failed", out.Failed),
		logging.Duration("elapsed", sum.Elapsed))
	_, err = fmt.Fprintf(stdout, "evaluated %d files (%d estimated, %d failed) -> %s\n",
		len(paths), out.Estimated, out.Failed, cfg.Output)
	return err
}

func newEstimator(cfg *config.Config, log logging.Logger) (*difficulty.Estimator, error) {
	w := model.DefaultWeights()
	if cfg.ModelFile != "" {
		var err error
		if w, err = model.LoadWeights(cfg.ModelFile); err != nil {
			return nil, err
		}
	}
	m, err := model.NewLogistic(w)
	if err != nil {
		return nil, err
	}
	return difficulty.NewEstimator(difficulty.Native(m), log.Named("estimate")), nil
}

func harnessOptions(cfg *config.Config) (harness.Options, error) {
	a, fixed, err := cfg.FixedAlphabet()
	if err != nil {
		return harness.Options{}, err
	}
	format, err := msa.ParseFormat(cfg.Format)
	if err != nil {
		return harness.Options{}, err
	}
	return harness.Options{
		PredictDifficulty: cfg.PredictDifficulty,
		RunReference:      cfg.RunReferenceAligners,
		Replicates:        cfg.Replicates,
		Workers:           cfg.Workers(),
		Alphabet:          a,
		Fixed:             fixed,
		Format:            format,
	}, nil
}

func references(cfg *config.Config) harness.References {
	var refs harness.References
	if !cfg.RunReferenceAligners {
		return refs
	}
	if t := cfg.Tools.RAxML; t.Enabled {
		refs.RAxML = reftools.NewRAxML(t)
	}
	if t := cfg.Tools.PhyML; t.Enabled {
		refs.PhyML = reftools.NewPhyML(t)
	}
	if t := cfg.Tools.Pythia; t.Enabled {
		refs.Pythia = reftools.NewPythia(t)
	}
	return refs
}

func fillSummary(s *report.Summary, cfg *config.Config, out *harness.Outcome, files int) {
	s.Output = cfg.Output
	s.Elapsed = time.Since(s.StartedAt).Round(time.Millisecond)
	s.Files = files
	s.Estimated = out.Estimated
	s.Failed = out.Failed
	s.Replicates = cfg.Replicates
	s.PredictDifficulty = cfg.PredictDifficulty
	s.RunReference = cfg.RunReferenceAligners
	s.ReferenceFailures = out.ReferenceFailures
	for _, r := range out.Rows {
		if r.Difficulty == nil || len(s.Hardest) == 5 {
			break
		}
		s.Hardest = append(s.Hardest, r.Path)
	}
}

// RunContext executes phydiff-eval with argv and returns the exit code.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return cliutil.Execute(ctx, NewCommand(), argv, stdout, stderr)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

