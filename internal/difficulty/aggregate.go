// internal/difficulty/aggregate.go
package difficulty

import (
	"fmt"

	"phydiff/internal/phylo"
)

// Aggregate summarizes the pairwise disagreement of an ensemble.
type Aggregate struct {
	// AvgRelativeRF is the mean of RF/(2(n-3)) over all unordered pairs.
	AvgRelativeRF float64
	// CountUnique is one plus the number of replicates i < M-1 whose
	// distance to every later replicate is positive.
	CountUnique int
	Pairs       int
}

// UniqueProportion is CountUnique/replicates.
func (a Aggregate) UniqueProportion(replicates int) float64 {
	return float64(a.CountUnique) / float64(replicates)
}

// AggregateDistances compares every pair i<j in ascending (i, j) order. The
// accumulation is sequential so results are bit-reproducible.
//
// Uniqueness is asymmetric: replicate i counts only when it differs from
// every replicate after it. The count starts at one, so M pairwise-distinct
// trees yield M and M identical trees yield 1.
func AggregateDistances(splits []*phylo.Split, taxa int, metric DistanceMetric) (Aggregate, error) {
	m := len(splits)
	if err := checkCounts(m, taxa); err != nil {
		return Aggregate{}, err
	}
	maxRF := float64(2 * (taxa - 3))

	agg := Aggregate{CountUnique: 1}
	sum := 0.0
	for i := 0; i < m-1; i++ {
		uniq := true
		for j := i + 1; j < m; j++ {
			d := metric.RFDistance(splits[i], splits[j], taxa)
			if d < 0 {
				return Aggregate{}, fmt.Errorf("%w: negative RF distance %d for pair (%d,%d)", ErrPrecondition, d, i, j)
			}
			sum += float64(d) / maxRF
			agg.Pairs++
			uniq = uniq && d > 0
		}
		if uniq {
			agg.CountUnique++
		}
	}
	agg.AvgRelativeRF = sum / float64(agg.Pairs)
	return agg, nil
}
