// internal/msa/residue.go
package msa

import "fmt"

// Alphabet classifies a file's residues.
type Alphabet int

const (
	Nucleotide Alphabet = iota
	Protein
)

func (a Alphabet) String() string {
	if a == Protein {
		return "Protein"
	}
	return "Nucleotide"
}

// ParseAlphabet accepts the report spelling as well as the short CLI forms.
func ParseAlphabet(s string) (Alphabet, error) {
	switch s {
	case "Nucleotide", "nucleotide", "nt", "dna", "DNA":
		return Nucleotide, nil
	case "Protein", "protein", "aa", "AA":
		return Protein, nil
	}
	return Nucleotide, fmt.Errorf("msa: unknown alphabet %q", s)
}

// IsNucleotideResidue reports whether b keeps a file in the Nucleotide class.
func IsNucleotideResidue(b byte) bool {
	switch b {
	case 'A', 'a', 'C', 'c', 'G', 'g', 'T', 't', '-', '_':
		return true
	}
	return false
}

// ResidueMap maps an input byte to a bitmask of character states.
// A zero entry never occurs; unknown bytes map to every state.
type ResidueMap struct {
	name   string
	states int
	table  [256]uint32
}

// Name returns "nt" or "aa".
func (m *ResidueMap) Name() string { return m.name }

// States returns the number of distinct character states.
func (m *ResidueMap) States() int { return m.states }

// Lookup returns the state set of b.
func (m *ResidueMap) Lookup(b byte) uint32 { return m.table[b] }

// Undetermined reports whether b carries no information (all states).
func (m *ResidueMap) Undetermined(b byte) bool { return m.table[b] == m.all() }

func (m *ResidueMap) all() uint32 { return uint32(1)<<m.states - 1 }

func (m *ResidueMap) setBoth(c byte, v uint32) {
	m.table[c] = v
	if c >= 'A' && c <= 'Z' {
		m.table[c+'a'-'A'] = v
	}
}

func newNucleotideMap() *ResidueMap {
	m := &ResidueMap{name: "nt", states: 4}
	for i := range m.table {
		m.table[i] = m.all()
	}
	const a, c, g, t = 1, 2, 4, 8
	for ch, v := range map[byte]uint32{
		'A': a, 'C': c, 'G': g, 'T': t, 'U': t,
		'R': a | g, 'Y': c | t, 'S': c | g, 'W': a | t, 'K': g | t, 'M': a | c,
		'B': c | g | t, 'D': a | g | t, 'H': a | c | t, 'V': a | c | g,
	} {
		m.setBoth(ch, v)
	}
	return m
}

const aminoOrder = "ARNDCQEGHILKMFPSTWYV"

func newProteinMap() *ResidueMap {
	m := &ResidueMap{name: "aa", states: len(aminoOrder)}
	for i := range m.table {
		m.table[i] = m.all()
	}
	bit := func(r byte) uint32 {
		for i := 0; i < len(aminoOrder); i++ {
			if aminoOrder[i] == r {
				return 1 << i
			}
		}
		panic("msa: not an amino acid: " + string(r))
	}
	for i := 0; i < len(aminoOrder); i++ {
		m.setBoth(aminoOrder[i], uint32(1)<<i)
	}
	m.setBoth('B', bit('D')|bit('N'))
	m.setBoth('Z', bit('E')|bit('Q'))
	m.setBoth('J', bit('I')|bit('L'))
	return m
}

var (
	nucleotideMap = newNucleotideMap()
	proteinMap    = newProteinMap()
)

// NucleotideMap is the residue map for DNA/RNA alignments.
func NucleotideMap() *ResidueMap { return nucleotideMap }

// ProteinMap is the residue map for amino-acid alignments.
func ProteinMap() *ResidueMap { return proteinMap }

// MapFor returns the residue map matching an alphabet.
func MapFor(a Alphabet) *ResidueMap {
	if a == Protein {
		return proteinMap
	}
	return nucleotideMap
}
