// internal/phylo/parsimony.go
package phylo

import (
	"fmt"
	"math/rand/v2"

	"phydiff/internal/msa"
)

// StepwiseBuilder builds parsimony trees by randomized stepwise addition:
// taxa are inserted in a seeded random order, each on the edge with the
// lowest Fitch insertion cost. Leaves are numbered in insertion order.
type StepwiseBuilder struct{}

// BuildTree returns a tree over every taxon of aln and its Fitch score.
func (StepwiseBuilder) BuildTree(aln *msa.Alignment, seed uint64, rm *msa.ResidueMap) (*Tree, uint, error) {
	n := aln.Taxa()
	if n < 3 {
		return nil, 0, fmt.Errorf("phylo: stepwise addition needs at least 3 taxa, have %d", n)
	}
	sites := aln.Length()

	states := make([][]uint32, n)
	for i := range states {
		seq := aln.Seq(i)
		row := make([]uint32, sites)
		for s, b := range seq {
			row[s] = rm.Lookup(b)
		}
		states[i] = row
	}

	order := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15)).Perm(n)

	t := NewTree(n)
	for _, row := range order {
		t.AddLeaf(aln.Label(row))
	}
	// leaf slot k holds alignment row order[k]
	leafStates := func(h int) []uint32 { return states[order[h]] }

	c := t.AddInner()
	for k := 0; k < 3; k++ {
		t.Connect(c, k)
	}

	// Leaves not yet inserted have degree 0 and appear in no edge.
	w := newFitchWork(sites, leafStates)
	for k := 3; k < n; k++ {
		w.reset(t.Len())
		best, bestCost := Edge{A: -1}, -1
		leaf := leafStates(k)
		for _, e := range t.Edges() {
			ab := w.down(t, e.A, e.B)
			ba := w.down(t, e.B, e.A)
			cost := 0
			for s := 0; s < sites; s++ {
				if fitch(ab[s], ba[s])&leaf[s] == 0 {
					cost++
				}
			}
			if bestCost < 0 || cost < bestCost {
				best, bestCost = e, cost
			}
		}
		x := t.AddInner()
		t.Disconnect(best.A, best.B)
		t.Connect(best.A, x)
		t.Connect(x, best.B)
		t.Connect(x, k)
	}

	return t, w.score(t), nil
}

func fitch(a, b uint32) uint32 {
	if x := a & b; x != 0 {
		return x
	}
	return a | b
}

// fitchWork caches directional Fitch state sets: set(a, b) is the state set
// of the subtree on a's side of edge a-b.
type fitchWork struct {
	sites      int
	leafStates func(h int) []uint32
	sets       [][]uint32
	valid      []bool
}

func newFitchWork(sites int, leafStates func(int) []uint32) *fitchWork {
	return &fitchWork{sites: sites, leafStates: leafStates}
}

func (w *fitchWork) reset(nodes int) {
	for len(w.sets) < 3*nodes {
		w.sets = append(w.sets, nil)
		w.valid = append(w.valid, false)
	}
	for i := range w.valid {
		w.valid[i] = false
	}
}

func slotOf(t *Tree, a, b int) int {
	for i, nb := range t.Neighbors(a) {
		if nb == b {
			return i
		}
	}
	panic(fmt.Sprintf("phylo: no edge %d-%d", a, b))
}

func (w *fitchWork) down(t *Tree, a, b int) []uint32 {
	if a < t.Taxa() {
		return w.leafStates(a)
	}
	key := 3*a + slotOf(t, a, b)
	if w.valid[key] {
		return w.sets[key]
	}
	var kids [2]int
	k := 0
	for _, nb := range t.Neighbors(a) {
		if nb != b {
			kids[k] = nb
			k++
		}
	}
	l := w.down(t, kids[0], a)
	r := w.down(t, kids[1], a)
	out := w.sets[key]
	if cap(out) < w.sites {
		out = make([]uint32, w.sites)
	}
	out = out[:w.sites]
	for s := range out {
		out[s] = fitch(l[s], r[s])
	}
	w.sets[key] = out
	w.valid[key] = true
	return out
}

// score counts Fitch union events over the whole tree, rooted on leaf 0's edge.
func (w *fitchWork) score(t *Tree) uint {
	root := t.Neighbors(0)[0]
	var total uint
	var walk func(a, from int) []uint32
	walk = func(a, from int) []uint32 {
		if a < t.Taxa() {
			return w.leafStates(a)
		}
		kids := make([][]uint32, 0, 2)
		for _, nb := range t.Neighbors(a) {
			if nb != from {
				kids = append(kids, walk(nb, a))
			}
		}
		out := make([]uint32, w.sites)
		for s := range out {
			if x := kids[0][s] & kids[1][s]; x != 0 {
				out[s] = x
			} else {
				out[s] = kids[0][s] | kids[1][s]
				total++
			}
		}
		return out
	}
	sub := walk(root, 0)
	leaf := w.leafStates(0)
	for s := range sub {
		if sub[s]&leaf[s] == 0 {
			total++
		}
	}
	return total
}
