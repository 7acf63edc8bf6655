// internal/difficulty/ensemble.go
package difficulty

import (
	"context"
	"fmt"

	"phydiff/internal/msa"
	"phydiff/internal/phylo"
)

// LabelIndexMap assigns each taxon label its canonical position, taken from
// the leaf order of the first replicate.
type LabelIndexMap map[string]int

// NewLabelIndexMap numbers the leaves of t in their discovery order.
func NewLabelIndexMap(t *phylo.Tree) LabelIndexMap {
	m := make(LabelIndexMap, t.Taxa())
	for i := 0; i < t.Taxa(); i++ {
		m[t.Leaf(i).Label] = i
	}
	return m
}

// Renumber overwrites every leaf position of t with its canonical id.
// A label missing from the map, a repeated label or a differing leaf count is
// a ReconciliationError.
func (m LabelIndexMap) Renumber(t *phylo.Tree, replicate int) error {
	if t.Taxa() != len(m) {
		return &ReconciliationError{
			Replicate: replicate,
			Reason:    fmt.Sprintf("tree has %d leaves, canonical map has %d", t.Taxa(), len(m)),
		}
	}
	used := make([]bool, len(m))
	for i := 0; i < t.Taxa(); i++ {
		leaf := t.Leaf(i)
		id, ok := m[leaf.Label]
		if !ok {
			return &ReconciliationError{Replicate: replicate, Label: leaf.Label, Reason: "not found in canonical map"}
		}
		if used[id] {
			return &ReconciliationError{Replicate: replicate, Label: leaf.Label, Reason: "appears more than once"}
		}
		used[id] = true
		leaf.Index = id
	}
	return nil
}

func checkCounts(replicates, taxa int) error {
	if replicates < 2 {
		return fmt.Errorf("%w: need at least 2 replicates, have %d", ErrPrecondition, replicates)
	}
	if taxa < 4 {
		return fmt.Errorf("%w: need at least 4 taxa for a relative RF distance, have %d", ErrPrecondition, taxa)
	}
	return nil
}

// BuildEnsemble builds replicates trees with seeds 0..replicates-1, renumbers
// their leaves against replicate 0 and returns one split per replicate. Each
// tree is released as soon as its split exists; the splits belong to the caller.
func BuildEnsemble(
	ctx context.Context,
	caps Capabilities,
	aln *msa.Alignment,
	replicates int,
	rm *msa.ResidueMap,
) ([]*phylo.Split, error) {
	taxa := aln.Taxa()
	if err := checkCounts(replicates, taxa); err != nil {
		return nil, err
	}

	splits := make([]*phylo.Split, 0, replicates)
	fail := func(err error) ([]*phylo.Split, error) {
		ReleaseSplits(splits)
		return nil, err
	}

	var labels LabelIndexMap
	for i := 0; i < replicates; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		tree, _, err := caps.Builder.BuildTree(aln, uint64(i), rm)
		if err != nil {
			return fail(&BuildError{Replicate: i, Err: err})
		}
		if tree == nil {
			return fail(&BuildError{Replicate: i, Err: fmt.Errorf("builder returned no tree")})
		}
		if i == 0 {
			labels = NewLabelIndexMap(tree)
		}
		if err := labels.Renumber(tree, i); err != nil {
			tree.Release()
			return fail(err)
		}
		s, err := caps.Splits.ExtractSplit(tree, taxa)
		tree.Release()
		if err != nil {
			return fail(&BuildError{Replicate: i, Err: err})
		}
		splits = append(splits, s)
	}
	return splits, nil
}

// ReleaseSplits releases every split in s.
func ReleaseSplits(s []*phylo.Split) {
	for _, x := range s {
		x.Release()
	}
}
