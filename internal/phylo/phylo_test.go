package phylo

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phydiff/internal/msa"
)

// quartet builds ((a,b),(c,d)) with leaves in the given label order.
func quartet(a, b, c, d string) *Tree {
	t := NewTree(4)
	for _, l := range []string{a, b, c, d} {
		t.AddLeaf(l)
	}
	x, y := t.AddInner(), t.AddInner()
	t.Connect(x, 0)
	t.Connect(x, 1)
	t.Connect(x, y)
	t.Connect(y, 2)
	t.Connect(y, 3)
	return t
}

func mustAlignment(t *testing.T, recs ...msa.Record) *msa.Alignment {
	t.Helper()
	a, err := msa.New(recs)
	require.NoError(t, err)
	return a
}

func TestTree_ValidateAndEdges(t *testing.T) {
	tr := quartet("a", "b", "c", "d")
	require.NoError(t, tr.Validate())
	assert.Len(t, tr.Edges(), 5)
	assert.Equal(t, 6, tr.Len())
	assert.True(t, tr.Leaf(2).IsLeaf())
	assert.Equal(t, 3, tr.Node(4).Degree())

	tr.Disconnect(5, 3)
	assert.Error(t, tr.Validate())

	tr.Release()
	assert.True(t, tr.Released())
}

func TestExtractSplit_UsesPositionFields(t *testing.T) {
	tr := quartet("a", "b", "c", "d")
	s, err := ExtractSplit(tr, 4)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "{2,3}", s.Parts()[0].String())

	// renumbering leaves changes which positions the bipartition names
	tr.Leaf(1).Index, tr.Leaf(2).Index = 2, 1
	s2, err := ExtractSplit(tr, 4)
	require.NoError(t, err)
	assert.Equal(t, "{1,3}", s2.Parts()[0].String())
	assert.Equal(t, 2, RFDistance(s, s2))
	assert.Equal(t, 0, RFDistance(s, s))

	tr.Leaf(0).Index = 3
	_, err = ExtractSplit(tr, 4)
	assert.ErrorContains(t, err, "more than one leaf")

	_, err = ExtractSplit(tr, 5)
	assert.Error(t, err)
}

func TestNewSplit_CanonicalAndTrivial(t *testing.T) {
	a := bitset.New(6).Set(0).Set(1).Set(2) // complement is {3,4,5}
	b := bitset.New(6).Set(3).Set(4).Set(5)
	trivial := bitset.New(6).Set(4)
	s := NewSplit(6, []*bitset.BitSet{a, b, trivial})
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "{3,4,5}", s.Parts()[0].String())

	s.Release()
	assert.True(t, s.Released())
}

func TestStepwiseBuilder_Quartet(t *testing.T) {
	aln := mustAlignment(t,
		msa.Record{ID: "A", Seq: []byte("AAAAAC")},
		msa.Record{ID: "B", Seq: []byte("AAAAAG")},
		msa.Record{ID: "C", Seq: []byte("CCCCCT")},
		msa.Record{ID: "D", Seq: []byte("CCCCCA")},
	)
	row := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}

	for seed := uint64(0); seed < 8; seed++ {
		tr, score, err := StepwiseBuilder{}.BuildTree(aln, seed, msa.NucleotideMap())
		require.NoError(t, err)
		require.NoError(t, tr.Validate())
		// five informative sites cost one change each, the last site three
		assert.Equal(t, uint(8), score, "seed %d", seed)

		for i := 0; i < 4; i++ {
			tr.Leaf(i).Index = row[tr.Leaf(i).Label]
		}
		s, err := ExtractSplit(tr, 4)
		require.NoError(t, err)
		require.Equal(t, 1, s.Len())
		assert.Equal(t, "{2,3}", s.Parts()[0].String(), "seed %d", seed)
	}
}

func TestStepwiseBuilder_DeterministicPerSeed(t *testing.T) {
	recs := []msa.Record{
		{ID: "t0", Seq: []byte("ACGTACGTAA")},
		{ID: "t1", Seq: []byte("ACGTACGTAC")},
		{ID: "t2", Seq: []byte("ACGAACGTTC")},
		{ID: "t3", Seq: []byte("TCGAACGTTC")},
		{ID: "t4", Seq: []byte("TCGAAGGTTC")},
		{ID: "t5", Seq: []byte("TCCAAGGTTG")},
		{ID: "t6", Seq: []byte("TCCAAGCTTG")},
		{ID: "t7", Seq: []byte("GCCAAGCTTG")},
	}
	aln := mustAlignment(t, recs...)

	order := func(seed uint64) []string {
		tr, _, err := StepwiseBuilder{}.BuildTree(aln, seed, msa.NucleotideMap())
		require.NoError(t, err)
		require.NoError(t, tr.Validate())
		require.Equal(t, 14, tr.Len())
		out := make([]string, tr.Taxa())
		for i := range out {
			out[i] = tr.Leaf(i).Label
			assert.Equal(t, i, tr.Leaf(i).Index)
		}
		return out
	}

	first := order(0)
	assert.Equal(t, first, order(0))
	assert.ElementsMatch(t, aln.Labels(), first)

	differs := false
	for seed := uint64(1); seed < 10 && !differs; seed++ {
		differs = !assert.ObjectsAreEqual(first, order(seed))
	}
	assert.True(t, differs, "leaf discovery order should depend on the seed")
}

func TestStepwiseBuilder_TooFewTaxa(t *testing.T) {
	aln := mustAlignment(t, msa.Record{ID: "a", Seq: []byte("A")}, msa.Record{ID: "b", Seq: []byte("C")})
	_, _, err := StepwiseBuilder{}.BuildTree(aln, 0, msa.NucleotideMap())
	assert.Error(t, err)
}
