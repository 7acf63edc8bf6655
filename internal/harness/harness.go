// Package harness evaluates a set of alignment files: dimensions and native
// difficulty in parallel, then the reference tools one file at a time, then
// a deterministic ordering of the resulting rows.
package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"phydiff/internal/difficulty"
	"phydiff/internal/logging"
	"phydiff/internal/metrics"
	"phydiff/internal/msa"
	"phydiff/internal/report"
)

// ErrNaNDifficulty aborts a run whose results cannot be ordered.
var ErrNaNDifficulty = errors.New("harness: difficulty is NaN")

// Estimator produces one native difficulty estimate.
type Estimator interface {
	Estimate(ctx context.Context, path string, opts difficulty.Options) (*difficulty.Result, error)
}

// Timer runs a reference program and reports how long it took.
type Timer interface {
	Run(ctx context.Context, path string) (time.Duration, error)
}

// Predictor runs the reference difficulty predictor.
type Predictor interface {
	Predict(ctx context.Context, path string) (time.Duration, float64, error)
}

// References are the optional reference programs. Nil members are skipped.
type References struct {
	RAxML  Timer
	PhyML  Timer
	Pythia Predictor
}

// Options control one evaluation.
type Options struct {
	PredictDifficulty bool
	RunReference      bool
	Replicates        int
	Workers           int
	// Alphabet overrides each file's own classification when Fixed is set.
	Alphabet msa.Alphabet
	Fixed    bool
	Format   msa.Format
}

// Outcome is the ordered report plus run counts.
type Outcome struct {
	Rows              []report.Row
	Estimated         int
	Failed            int
	ReferenceFailures int
}

// Harness wires the per-file stages together.
type Harness struct {
	Estimator  Estimator
	Dimensions func(ctx context.Context, path string, format msa.Format) (msa.Dimensions, error)
	Refs       References
	Log        logging.Logger
	Metrics    *metrics.Recorder
}

// New returns a Harness reading dimensions with msa.ReadDimensionsFormat.
func New(est Estimator, refs References, log logging.Logger, rec *metrics.Recorder) *Harness {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Harness{Estimator: est, Dimensions: msa.ReadDimensionsFormat, Refs: refs, Log: log, Metrics: rec}
}

type fileStatus int

const (
	statusSkipped fileStatus = iota
	statusEstimated
	statusFailed
)

// Evaluate processes paths and returns rows sorted by descending difficulty.
// Per-file failures leave blank cells; a reconciliation failure, a NaN
// difficulty or cancellation fails the whole run and returns no rows.
func (h *Harness) Evaluate(ctx context.Context, paths []string, opts Options) (*Outcome, error) {
	rows := make([]report.Row, len(paths))
	status := make([]fileStatus, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			rows[i], status[i], err = h.evaluateFile(gctx, p, opts)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Outcome{}
	for _, s := range status {
		switch s {
		case statusEstimated:
			out.Estimated++
		case statusFailed:
			out.Failed++
		}
	}

	if opts.RunReference {
		n, err := h.runReferences(ctx, rows)
		if err != nil {
			return nil, err
		}
		out.ReferenceFailures = n
	}

	if err := SortRows(rows); err != nil {
		return nil, err
	}
	out.Rows = rows
	return out, nil
}

func (h *Harness) evaluateFile(ctx context.Context, path string, opts Options) (report.Row, fileStatus, error) {
	row := report.Row{Path: path}
	log := h.Log.With(logging.String("path", path))

	dims, err := h.Dimensions(ctx, path, opts.Format)
	if err != nil {
		if ctx.Err() != nil {
			return row, statusFailed, ctx.Err()
		}
		log.Warn("cannot read alignment dimensions", logging.Err(err))
		h.Metrics.File(metrics.OutcomeUnread)
		return row, statusFailed, nil
	}
	row.Dims = &dims
	if !opts.PredictDifficulty {
		h.Metrics.File(metrics.OutcomeSkipped)
		return row, statusSkipped, nil
	}

	alphabet := dims.Alphabet
	if opts.Fixed {
		alphabet = opts.Alphabet
	}
	start := time.Now()
	res, err := h.Estimator.Estimate(ctx, path, difficulty.Options{
		Replicates: opts.Replicates,
		Alphabet:   alphabet,
		Format:     opts.Format,
	})
	if err != nil {
		if difficulty.IsBatchFatal(err) {
			log.Error("aborting run", logging.Err(err))
			return row, statusFailed, err
		}
		if ctx.Err() != nil {
			return row, statusFailed, ctx.Err()
		}
		log.Warn("difficulty estimate failed", logging.Err(err))
		h.Metrics.File(metrics.OutcomeFailed)
		return row, statusFailed, nil
	}
	elapsed := time.Since(start)

	row.Difficulty = report.Float(res.Difficulty)
	row.AvgRelativeRF = report.Float(res.AvgRelativeRF)
	row.UniqueTopologyProportion = report.Float(res.UniqueTopologyProportion)
	h.Metrics.File(metrics.OutcomeEstimated)
	h.Metrics.Estimate(elapsed, res.Difficulty)
	log.Info("estimated difficulty",
		logging.Float64("difficulty", res.Difficulty),
		logging.Int("taxa", dims.Taxa),
		logging.Duration("elapsed", elapsed))
	return row, statusEstimated, nil
}

// runReferences runs every configured tool on every file on the calling
// goroutine, one process at a time.
func (h *Harness) runReferences(ctx context.Context, rows []report.Row) (int, error) {
	failures := 0
	timed := func(name string, t Timer, path string) *time.Duration {
		d, err := t.Run(ctx, path)
		if err != nil {
			failures++
			h.Metrics.Reference(name, 0, false)
			h.Log.Warn("reference tool failed", logging.String("tool", name), logging.String("path", path), logging.Err(err))
			return nil
		}
		h.Metrics.Reference(name, d, true)
		return report.Duration(d)
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		r := &rows[i]
		if h.Refs.RAxML != nil {
			r.RAxML = timed("raxml", h.Refs.RAxML, r.Path)
		}
		if h.Refs.PhyML != nil {
			r.PhyML = timed("phyml", h.Refs.PhyML, r.Path)
		}
		if h.Refs.Pythia == nil {
			continue
		}
		d, py, err := h.Refs.Pythia.Predict(ctx, r.Path)
		if err != nil {
			failures++
			h.Metrics.Reference("pythia", 0, false)
			h.Log.Warn("reference tool failed", logging.String("tool", "pythia"), logging.String("path", r.Path), logging.Err(err))
			continue
		}
		h.Metrics.Reference("pythia", d, true)
		r.Pythia = report.Duration(d)
		r.PythiaDifficulty = report.Float(py)
		if r.Difficulty != nil && difficulty.RoundDifficulty(py) != *r.Difficulty {
			h.Log.Warn("difficulty mismatch",
				logging.String("path", r.Path),
				logging.Float64("native", *r.Difficulty),
				logging.Float64("pythia", py))
		}
	}
	return failures, ctx.Err()
}

// SortRows orders rows by descending difficulty, treating a missing value
// as negative infinity, with ties broken by ascending path. A NaN
// difficulty is rejected before anything is reordered.
func SortRows(rows []report.Row) error {
	for _, r := range rows {
		if r.Difficulty != nil && math.IsNaN(*r.Difficulty) {
			return fmt.Errorf("%w: %s", ErrNaNDifficulty, r.Path)
		}
	}
	key := func(r report.Row) float64 {
		if r.Difficulty == nil {
			return math.Inf(-1)
		}
		return *r.Difficulty
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := key(rows[i]), key(rows[j])
		if a != b {
			return a > b
		}
		return rows[i].Path < rows[j].Path
	})
	return nil
}
