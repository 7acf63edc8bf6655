// Package features computes the alignment summary statistics fed to the
// difficulty model.
package features

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"phydiff/internal/msa"
)

// Names of the entries of a Vector, in order.
const (
	Taxa = iota
	Sites
	Patterns
	PatternsPerTaxon
	SitesPerTaxon
	ProportionGaps
	ProportionInvariant
	MeanSiteEntropy
	PatternEntropy
	Bollback

	Count
)

var names = [Count]string{
	"num_taxa", "num_sites", "num_patterns", "num_patterns/num_taxa", "num_sites/num_taxa",
	"proportion_gaps", "proportion_invariant", "entropy", "pattern_entropy", "bollback",
}

// Name returns the report name of feature i.
func Name(i int) string { return names[i] }

// Vector is a fixed-layout feature vector.
type Vector struct {
	Values []float64
}

// Get returns feature i.
func (v *Vector) Get(i int) float64 { return v.Values[i] }

// Clone copies the values out of v.
func (v *Vector) Clone() []float64 { return append([]float64(nil), v.Values...) }

// Release drops the values.
func (v *Vector) Release() {
	if v != nil {
		v.Values = nil
	}
}

// Released reports whether Release has been called.
func (v *Vector) Released() bool { return v.Values == nil }

// Extractor computes feature vectors.
type Extractor struct{}

// ComputeFeatures summarizes aln under the residue map rm.
func (Extractor) ComputeFeatures(aln *msa.Alignment, rm *msa.ResidueMap) (*Vector, error) {
	n, sites := aln.Taxa(), aln.Length()
	if n == 0 || sites == 0 {
		return nil, fmt.Errorf("features: empty alignment (%d taxa, %d sites)", n, sites)
	}

	var (
		gaps      int
		invariant int
		entropies = make([]float64, sites)
		patterns  = make(map[string]int, sites)
		column    = make([]byte, n)
		counts    = make([]float64, rm.States())
	)
	for s := 0; s < sites; s++ {
		for i := range counts {
			counts[i] = 0
		}
		shared := ^uint32(0)
		for i := 0; i < n; i++ {
			b := aln.Seq(i)[s]
			column[i] = upper(b)
			if rm.Undetermined(b) {
				gaps++
				continue
			}
			set := rm.Lookup(b)
			shared &= set
			// ambiguity codes spread their weight over the states they allow
			k := float64(bits.OnesCount32(set))
			for st := 0; st < len(counts); st++ {
				if set&(1<<st) != 0 {
					counts[st] += 1 / k
				}
			}
		}
		if shared != 0 {
			invariant++
		}
		if total := floats.Sum(counts); total > 0 {
			floats.Scale(1/total, counts)
			entropies[s] = stat.Entropy(counts)
		}
		patterns[string(column)]++
	}

	// map order is random; sort so the sums are reproducible
	pc := make([]int, 0, len(patterns))
	for _, c := range patterns {
		pc = append(pc, c)
	}
	sort.Ints(pc)
	freq := make([]float64, 0, len(pc))
	bollback := 0.0
	for _, c := range pc {
		fc := float64(c)
		freq = append(freq, fc/float64(sites))
		bollback += fc * math.Log(fc)
	}
	bollback -= float64(sites) * math.Log(float64(sites))

	v := &Vector{Values: make([]float64, Count)}
	v.Values[Taxa] = float64(n)
	v.Values[Sites] = float64(sites)
	v.Values[Patterns] = float64(len(patterns))
	v.Values[PatternsPerTaxon] = float64(len(patterns)) / float64(n)
	v.Values[SitesPerTaxon] = float64(sites) / float64(n)
	v.Values[ProportionGaps] = float64(gaps) / float64(n*sites)
	v.Values[ProportionInvariant] = float64(invariant) / float64(sites)
	v.Values[MeanSiteEntropy] = stat.Mean(entropies, nil)
	v.Values[PatternEntropy] = stat.Entropy(freq)
	v.Values[Bollback] = bollback
	return v, nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
