package difficulty

import (
	"fmt"
	"sync"

	"phydiff/internal/features"
	"phydiff/internal/msa"
	"phydiff/internal/phylo"
)

// caterpillar builds the caterpillar tree over topo, adding leaves to the
// arena in discovery order so leaf slots differ from topology positions.
func caterpillar(topo, discovery []string) *phylo.Tree {
	n := len(topo)
	t := phylo.NewTree(n)
	slot := make(map[string]int, n)
	for _, l := range discovery {
		slot[l] = t.AddLeaf(l)
	}
	inner := make([]int, n-2)
	for k := range inner {
		inner[k] = t.AddInner()
	}
	t.Connect(inner[0], slot[topo[0]])
	t.Connect(inner[0], slot[topo[1]])
	for k := 1; k < n-2; k++ {
		t.Connect(inner[k-1], inner[k])
		t.Connect(inner[k], slot[topo[k+1]])
	}
	t.Connect(inner[n-3], slot[topo[n-1]])
	return t
}

func rotate(s []string, by int) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[(i+by)%len(s)]
	}
	return out
}

// fakeBuilder returns caterpillars. topo and discovery pick the topology and
// leaf numbering per seed; nil means the alignment order.
type fakeBuilder struct {
	mu        sync.Mutex
	seeds     []uint64
	topo      func(seed uint64, labels []string) []string
	discovery func(seed uint64, labels []string) []string
	fail      map[uint64]error
}

func (b *fakeBuilder) BuildTree(aln *msa.Alignment, seed uint64, _ *msa.ResidueMap) (*phylo.Tree, uint, error) {
	b.mu.Lock()
	b.seeds = append(b.seeds, seed)
	b.mu.Unlock()
	if err := b.fail[seed]; err != nil {
		return nil, 0, err
	}
	labels := append([]string(nil), aln.Labels()...)
	topo, disc := labels, labels
	if b.topo != nil {
		topo = b.topo(seed, labels)
	}
	if b.discovery != nil {
		disc = b.discovery(seed, labels)
	}
	return caterpillar(topo, disc), 0, nil
}

func (b *fakeBuilder) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seeds)
}

// recordingSplitter remembers every tree and split it saw.
type recordingSplitter struct {
	trees  []*phylo.Tree
	splits []*phylo.Split
}

func (r *recordingSplitter) ExtractSplit(t *phylo.Tree, taxa int) (*phylo.Split, error) {
	s, err := phylo.ExtractSplit(t, taxa)
	if err == nil {
		r.trees = append(r.trees, t)
		r.splits = append(r.splits, s)
	}
	return s, err
}

// matrixMetric serves distances from a symmetric table keyed by split identity.
type matrixMetric struct {
	index map[*phylo.Split]int
	d     [][]int
}

func (m matrixMetric) RFDistance(a, b *phylo.Split, _ int) int { return m.d[m.index[a]][m.index[b]] }

func matrixSplits(d [][]int) ([]*phylo.Split, matrixMetric) {
	m := matrixMetric{index: map[*phylo.Split]int{}, d: d}
	out := make([]*phylo.Split, len(d))
	for i := range d {
		out[i] = phylo.NewSplit(8, nil)
		m.index[out[i]] = i
	}
	return out, m
}

type recordingLoader struct {
	loaded []*msa.Alignment
}

func (r *recordingLoader) Load(path string, format msa.Format) (*msa.Alignment, error) {
	a, err := msa.Load(path, format)
	if err == nil {
		r.loaded = append(r.loaded, a)
	}
	return a, err
}

type recordingFeatures struct {
	vectors []*features.Vector
}

func (r *recordingFeatures) ComputeFeatures(aln *msa.Alignment, rm *msa.ResidueMap) (*features.Vector, error) {
	v, err := features.Extractor{}.ComputeFeatures(aln, rm)
	if err == nil {
		r.vectors = append(r.vectors, v)
	}
	return v, err
}

// linearModel makes the raw score easy to predict in tests.
type linearModel struct{ bias float64 }

func (m linearModel) Predict(_ *features.Vector, avgRRF, uniq float64) float64 {
	return m.bias + avgRRF/2 + uniq/4
}

func taxonLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("taxon%02d", i)
	}
	return out
}
