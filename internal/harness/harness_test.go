package harness

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"phydiff/internal/difficulty"
	"phydiff/internal/logging"
	"phydiff/internal/metrics"
	"phydiff/internal/msa"
	"phydiff/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEstimator struct {
	mu      sync.Mutex
	results map[string]float64
	errs    map[string]error
	seen    map[string]difficulty.Options
}

func (f *fakeEstimator) Estimate(ctx context.Context, path string, opts difficulty.Options) (*difficulty.Result, error) {
	f.mu.Lock()
	if f.seen == nil {
		f.seen = map[string]difficulty.Options{}
	}
	f.seen[path] = opts
	f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	d, ok := f.results[path]
	if !ok {
		return nil, &difficulty.LoadError{Path: path, Err: msa.ErrEmpty}
	}
	return &difficulty.Result{Difficulty: d, AvgRelativeRF: d / 2, UniqueTopologyProportion: 1, CountUnique: 10}, nil
}

func (f *fakeEstimator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func fixedDims(alphabets map[string]msa.Alphabet, broken ...string) func(context.Context, string, msa.Format) (msa.Dimensions, error) {
	return func(_ context.Context, path string, _ msa.Format) (msa.Dimensions, error) {
		for _, b := range broken {
			if b == path {
				return msa.Dimensions{}, errors.New("permission denied")
			}
		}
		return msa.Dimensions{Taxa: 8, MinSeqLen: 100, MaxSeqLen: 100, Alphabet: alphabets[path]}, nil
	}
}

type entry struct {
	level, msg string
	fields     []logging.Field
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]entry
	with    []logging.Field
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{mu: &sync.Mutex{}, entries: &[]entry{}}
}

func (l recordingLogger) add(level, msg string, fields []logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, entry{level, msg, append(append([]logging.Field(nil), l.with...), fields...)})
}

func (l recordingLogger) Debug(msg string, f ...logging.Field) { l.add("debug", msg, f) }
func (l recordingLogger) Info(msg string, f ...logging.Field)  { l.add("info", msg, f) }
func (l recordingLogger) Warn(msg string, f ...logging.Field)  { l.add("warn", msg, f) }
func (l recordingLogger) Error(msg string, f ...logging.Field) { l.add("error", msg, f) }
func (l recordingLogger) Named(string) logging.Logger          { return l }
func (l recordingLogger) Sync() error                          { return nil }
func (l recordingLogger) With(f ...logging.Field) logging.Logger {
	l.with = append(append([]logging.Field(nil), l.with...), f...)
	return l
}

func (l recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range *l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

func paths(rows []report.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Path
	}
	return out
}

func TestEvaluate_OrdersAndToleratesPerFileFailures(t *testing.T) {
	est := &fakeEstimator{results: map[string]float64{"a": 0.3, "b": 0.7, "d": 0.7}}
	log := newRecordingLogger()
	h := New(est, References{}, log, metrics.New())
	h.Dimensions = fixedDims(nil, "e")

	out, err := h.Evaluate(context.Background(), []string{"a", "b", "c", "d", "e"}, Options{
		PredictDifficulty: true, Replicates: 10, Workers: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, paths(out.Rows))
	assert.Equal(t, 3, out.Estimated)
	assert.Equal(t, 2, out.Failed)

	c := out.Rows[3]
	assert.Nil(t, c.Difficulty)
	require.NotNil(t, c.Dims, "a failed estimate keeps its dimensions")
	assert.Nil(t, out.Rows[4].Dims)
	assert.Equal(t, 0.35, *out.Rows[1].AvgRelativeRF)
	assert.Len(t, log.messages("warn"), 2)
}

func TestEvaluate_ReconciliationIsFatal(t *testing.T) {
	est := &fakeEstimator{
		results: map[string]float64{"a": 0.1, "b": 0.2},
		errs:    map[string]error{"b": &difficulty.ReconciliationError{Replicate: 4, Label: "x", Reason: "not found in canonical map"}},
	}
	h := New(est, References{}, nil, nil)
	h.Dimensions = fixedDims(nil)

	out, err := h.Evaluate(context.Background(), []string{"a", "b"}, Options{PredictDifficulty: true, Workers: 1})
	assert.Nil(t, out)
	var re *difficulty.ReconciliationError
	assert.ErrorAs(t, err, &re)
}

func TestEvaluate_NaNIsFatal(t *testing.T) {
	est := &fakeEstimator{results: map[string]float64{"a": 0.1, "b": math.NaN()}}
	h := New(est, References{}, nil, nil)
	h.Dimensions = fixedDims(nil)

	out, err := h.Evaluate(context.Background(), []string{"a", "b"}, Options{PredictDifficulty: true, Workers: 2})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrNaNDifficulty)
}

func TestEvaluate_WithoutPrediction(t *testing.T) {
	est := &fakeEstimator{}
	h := New(est, References{}, nil, nil)
	h.Dimensions = fixedDims(map[string]msa.Alphabet{"z": msa.Protein})

	out, err := h.Evaluate(context.Background(), []string{"z", "y"}, Options{Workers: 4})
	require.NoError(t, err)
	assert.Zero(t, est.calls())
	assert.Equal(t, []string{"y", "z"}, paths(out.Rows))
	assert.Equal(t, msa.Protein, out.Rows[1].Dims.Alphabet)
	assert.Zero(t, out.Estimated)
	assert.Zero(t, out.Failed)
}

func TestEvaluate_Alphabet(t *testing.T) {
	est := &fakeEstimator{results: map[string]float64{"nt": 0.1, "aa": 0.2}}
	h := New(est, References{}, nil, nil)
	h.Dimensions = fixedDims(map[string]msa.Alphabet{"nt": msa.Nucleotide, "aa": msa.Protein})

	_, err := h.Evaluate(context.Background(), []string{"nt", "aa"}, Options{PredictDifficulty: true, Replicates: 7, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, msa.Nucleotide, est.seen["nt"].Alphabet)
	assert.Equal(t, msa.Protein, est.seen["aa"].Alphabet)
	assert.Equal(t, 7, est.seen["aa"].Replicates)

	_, err = h.Evaluate(context.Background(), []string{"nt", "aa"}, Options{PredictDifficulty: true, Workers: 2, Fixed: true, Alphabet: msa.Protein})
	require.NoError(t, err)
	assert.Equal(t, msa.Protein, est.seen["nt"].Alphabet)
}

// serialTool fails if two runs overlap and records the call order.
type serialTool struct {
	mu      *sync.Mutex
	busy    *bool
	order   *[]string
	name    string
	fail    map[string]bool
	predict float64
}

func (s serialTool) enter(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *s.busy {
		return errors.New("overlapping run")
	}
	*s.busy = true
	*s.order = append(*s.order, s.name+":"+path)
	return nil
}

func (s serialTool) leave() {
	s.mu.Lock()
	*s.busy = false
	s.mu.Unlock()
}

func (s serialTool) Run(_ context.Context, path string) (time.Duration, error) {
	if err := s.enter(path); err != nil {
		return 0, err
	}
	defer s.leave()
	if s.fail[path] {
		return 0, errors.New("exit status 1")
	}
	return 5 * time.Millisecond, nil
}

func (s serialTool) Predict(ctx context.Context, path string) (time.Duration, float64, error) {
	d, err := s.Run(ctx, path)
	return d, s.predict, err
}

func TestEvaluate_ReferenceToolsRunSerially(t *testing.T) {
	var (
		mu    sync.Mutex
		busy  bool
		order []string
	)
	tool := func(name string, fail map[string]bool, predict float64) serialTool {
		return serialTool{mu: &mu, busy: &busy, order: &order, name: name, fail: fail, predict: predict}
	}
	refs := References{
		RAxML:  tool("raxml", map[string]bool{"b": true}, 0),
		PhyML:  tool("phyml", nil, 0),
		Pythia: tool("pythia", nil, 0.456),
	}
	est := &fakeEstimator{results: map[string]float64{"a": 0.46, "b": 0.12}}
	log := newRecordingLogger()
	rec := metrics.New()
	h := New(est, refs, log, rec)
	h.Dimensions = fixedDims(nil)

	out, err := h.Evaluate(context.Background(), []string{"a", "b"}, Options{PredictDifficulty: true, RunReference: true, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"raxml:a", "phyml:a", "pythia:a", "raxml:b", "phyml:b", "pythia:b"}, order)
	assert.Equal(t, 1, out.ReferenceFailures)

	a, b := out.Rows[0], out.Rows[1]
	require.Equal(t, "a", a.Path)
	assert.Equal(t, 5*time.Millisecond, *a.RAxML)
	assert.Equal(t, 0.456, *a.PythiaDifficulty)
	assert.Nil(t, b.RAxML)
	assert.NotNil(t, b.PhyML)

	// 0.456 rounds to 0.46 and matches a; b disagrees
	assert.Equal(t, []string{"reference tool failed", "difficulty mismatch"}, log.messages("warn"))
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := New(&fakeEstimator{}, References{}, nil, nil)
	h.Dimensions = fixedDims(nil)
	_, err := h.Evaluate(ctx, []string{"a", "b", "c"}, Options{PredictDifficulty: true, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortRows(t *testing.T) {
	rows := []report.Row{
		{Path: "z"},
		{Path: "m", Difficulty: report.Float(0.5)},
		{Path: "b"},
		{Path: "a", Difficulty: report.Float(0.5)},
		{Path: "q", Difficulty: report.Float(0.9)},
		{Path: "n", Difficulty: report.Float(0)},
	}
	require.NoError(t, SortRows(rows))
	assert.Equal(t, []string{"q", "a", "m", "n", "b", "z"}, paths(rows))

	rows = append(rows, report.Row{Path: "nan", Difficulty: report.Float(math.NaN())})
	before := paths(rows)
	assert.ErrorIs(t, SortRows(rows), ErrNaNDifficulty)
	assert.Equal(t, before, paths(rows))
}
