// internal/report/select.go
package report

import (
	"sort"

	"phydiff/internal/msa"
)

// Select keeps nucleotide rows whose sequences all share one length and
// orders them by taxon count, then by length. Rows without dimensions are
// dropped. The input is left untouched.
func Select(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if r.Dims == nil || r.Dims.Alphabet != msa.Nucleotide || !r.Dims.Uniform() {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Dims, out[j].Dims
		if a.Taxa != b.Taxa {
			return a.Taxa < b.Taxa
		}
		return a.MinSeqLen < b.MinSeqLen
	})
	return out
}
