// internal/difficulty/estimator.go
package difficulty

import (
	"context"
	"fmt"
	"math"

	"phydiff/internal/features"
	"phydiff/internal/logging"
	"phydiff/internal/msa"
	"phydiff/internal/phylo"
)

// DefaultReplicates is the ensemble size used when none is configured.
const DefaultReplicates = 100

// Options controls one estimate.
type Options struct {
	Replicates int
	Alphabet   msa.Alphabet
	Format     msa.Format
}

// Result is the outcome of one estimate. It is never partially filled.
type Result struct {
	AvgRelativeRF            float64
	CountUnique              int
	UniqueTopologyProportion float64
	Difficulty               float64
	Features                 []float64
}

// Estimator composes the capabilities into a difficulty estimate.
type Estimator struct {
	caps Capabilities
	log  logging.Logger
	// onRelease, when set, sees "splits", "features" and "alignment" as
	// each is released.
	onRelease func(stage string)
}

// NewEstimator returns an Estimator. A nil logger discards output.
func NewEstimator(caps Capabilities, log logging.Logger) *Estimator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Estimator{caps: caps, log: log}
}

// Estimate loads the alignment at path and returns its rounded difficulty.
// The splits, the feature vector and the alignment are released in that
// order on every return path.
func (e *Estimator) Estimate(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.Replicates == 0 {
		opts.Replicates = DefaultReplicates
	}
	if opts.Replicates < 2 {
		return nil, fmt.Errorf("%w: need at least 2 replicates, have %d", ErrPrecondition, opts.Replicates)
	}
	rm := msa.MapFor(opts.Alphabet)
	log := e.log.With(logging.String("path", path))

	aln, err := e.caps.Loader.Load(path, opts.Format)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if aln == nil || aln.Taxa() == 0 {
		return nil, &LoadError{Path: path, Err: msa.ErrEmpty}
	}

	var (
		splits []*phylo.Split
		feats  *features.Vector
	)
	defer func() {
		ReleaseSplits(splits)
		e.released("splits")
		feats.Release()
		e.released("features")
		aln.Release()
		e.released("alignment")
	}()

	taxa := aln.Taxa()
	if err := checkCounts(opts.Replicates, taxa); err != nil {
		return nil, err
	}

	splits, err = BuildEnsemble(ctx, e.caps, aln, opts.Replicates, rm)
	if err != nil {
		return nil, err
	}
	log.Debug("built ensemble", logging.Int("replicates", len(splits)), logging.Int("taxa", taxa))

	agg, err := AggregateDistances(splits, taxa, e.caps.Distance)
	if err != nil {
		return nil, err
	}
	uniq := agg.UniqueProportion(opts.Replicates)
	log.Debug("aggregated distances",
		logging.Float64("avg_rel_rf", agg.AvgRelativeRF),
		logging.Int("unique_topologies", agg.CountUnique))

	feats, err = e.caps.Features.ComputeFeatures(aln, rm)
	if err != nil {
		return nil, fmt.Errorf("compute features for %s: %w", path, err)
	}

	raw := e.caps.Model.Predict(feats, agg.AvgRelativeRF, uniq)
	res := &Result{
		AvgRelativeRF:            agg.AvgRelativeRF,
		CountUnique:              agg.CountUnique,
		UniqueTopologyProportion: uniq,
		Difficulty:               RoundDifficulty(raw),
		Features:                 feats.Clone(),
	}
	log.Debug("predicted difficulty", logging.Float64("raw", raw), logging.Float64("difficulty", res.Difficulty))
	return res, nil
}

func (e *Estimator) released(stage string) {
	if e.onRelease != nil {
		e.onRelease(stage)
	}
}

// RoundDifficulty rounds half away from zero to two decimals. Negative zero
// becomes zero.
func RoundDifficulty(raw float64) float64 {
	r := math.Round(raw*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
