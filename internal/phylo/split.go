// internal/phylo/split.go
package phylo

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Split is the set of non-trivial bipartitions of a tree. Each bipartition is
// a bitset over position fields, oriented so that position 0 is never set.
// A Split holds no reference to the tree it came from.
type Split struct {
	taxa  int
	parts []*bitset.BitSet
	keys  []string // sorted, one per part
}

// NewSplit builds a Split from bipartitions over taxa positions. Parts are
// canonicalized; trivial parts (fewer than two taxa on either side) are dropped
// and duplicates collapse.
func NewSplit(taxa int, parts []*bitset.BitSet) *Split {
	s := &Split{taxa: taxa}
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = canonical(p, taxa)
		c := int(p.Count())
		if c < 2 || taxa-c < 2 {
			continue
		}
		k := p.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		s.parts = append(s.parts, p)
		s.keys = append(s.keys, k)
	}
	sort.Sort(byKey{s})
	return s
}

func canonical(p *bitset.BitSet, taxa int) *bitset.BitSet {
	if p.Test(0) {
		q := bitset.New(uint(taxa))
		for i := 0; i < taxa; i++ {
			if !p.Test(uint(i)) {
				q.Set(uint(i))
			}
		}
		return q
	}
	return p
}

type byKey struct{ s *Split }

func (b byKey) Len() int           { return len(b.s.keys) }
func (b byKey) Less(i, j int) bool { return b.s.keys[i] < b.s.keys[j] }
func (b byKey) Swap(i, j int) {
	b.s.keys[i], b.s.keys[j] = b.s.keys[j], b.s.keys[i]
	b.s.parts[i], b.s.parts[j] = b.s.parts[j], b.s.parts[i]
}

// Taxa returns the number of taxa the split was built over.
func (s *Split) Taxa() int { return s.taxa }

// Len returns the number of non-trivial bipartitions.
func (s *Split) Len() int { return len(s.parts) }

// Parts returns the bipartitions. The slice must not be modified.
func (s *Split) Parts() []*bitset.BitSet { return s.parts }

// Release drops the bipartitions.
func (s *Split) Release() {
	if s == nil {
		return
	}
	s.parts = nil
	s.keys = nil
}

// Released reports whether Release has been called.
func (s *Split) Released() bool { return s.keys == nil && s.parts == nil }

// ExtractSplit reads the bipartitions of t from its leaves' position fields.
// Every leaf Index must be a distinct value in [0, taxa).
func ExtractSplit(t *Tree, taxa int) (*Split, error) {
	if t.Taxa() != taxa {
		return nil, fmt.Errorf("phylo: tree has %d leaves, expected %d", t.Taxa(), taxa)
	}
	seen := bitset.New(uint(taxa))
	for i := 0; i < taxa; i++ {
		idx := t.Leaf(i).Index
		if idx < 0 || idx >= taxa {
			return nil, fmt.Errorf("phylo: leaf %q has position %d outside [0,%d)", t.Leaf(i).Label, idx, taxa)
		}
		if seen.Test(uint(idx)) {
			return nil, fmt.Errorf("phylo: position %d assigned to more than one leaf", idx)
		}
		seen.Set(uint(idx))
	}

	var parts []*bitset.BitSet
	for _, e := range t.Edges() {
		if e.A < taxa || e.B < taxa {
			continue
		}
		p := bitset.New(uint(taxa))
		collect(t, e.B, e.A, p)
		parts = append(parts, p)
	}
	return NewSplit(taxa, parts), nil
}

// collect sets the positions of every leaf on h's side of edge h-from.
func collect(t *Tree, h, from int, p *bitset.BitSet) {
	if h < t.Taxa() {
		p.Set(uint(t.Node(h).Index))
		return
	}
	for _, nb := range t.Neighbors(h) {
		if nb != from {
			collect(t, nb, h, p)
		}
	}
}

// RFDistance is the Robinson-Foulds distance: the number of bipartitions
// present in exactly one of a and b.
func RFDistance(a, b *Split) int {
	i, j, common := 0, 0, 0
	for i < len(a.keys) && j < len(b.keys) {
		switch {
		case a.keys[i] == b.keys[j]:
			common++
			i++
			j++
		case a.keys[i] < b.keys[j]:
			i++
		default:
			j++
		}
	}
	return len(a.keys) + len(b.keys) - 2*common
}

// Splitter adapts ExtractSplit to the estimator's extraction capability.
type Splitter struct{}

func (Splitter) ExtractSplit(t *Tree, taxa int) (*Split, error) { return ExtractSplit(t, taxa) }

// RF adapts RFDistance to the estimator's distance capability.
type RF struct{}

func (RF) RFDistance(a, b *Split, _ int) int { return RFDistance(a, b) }
