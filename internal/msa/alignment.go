// internal/msa/alignment.go
package msa

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmpty is returned when a file holds no records or a record has no residues.
	ErrEmpty = errors.New("msa: empty alignment")
	// ErrUnaligned is returned when sequences differ in length.
	ErrUnaligned = errors.New("msa: sequences differ in length")
	// ErrDuplicateLabel is returned when two records share a label.
	ErrDuplicateLabel = errors.New("msa: duplicate taxon label")
)

// Format selects the on-disk alignment syntax.
type Format string

const (
	FormatFASTA  Format = "fasta"
	FormatPhylip Format = "phylip"
)

// ParseFormat maps a user string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "fasta", "fa":
		return FormatFASTA, nil
	case "phylip", "phy":
		return FormatPhylip, nil
	}
	return "", fmt.Errorf("msa: unknown format %q", s)
}

// Record is one named sequence.
type Record struct {
	ID  string
	Seq []byte
}

// Alignment is a set of equal-length sequences with unique labels,
// kept in file order.
type Alignment struct {
	labels []string
	seqs   [][]byte
	length int
}

// New validates records and builds an Alignment. Records are not copied.
func New(records []Record) (*Alignment, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	a := &Alignment{
		labels: make([]string, 0, len(records)),
		seqs:   make([][]byte, 0, len(records)),
		length: len(records[0].Seq),
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if len(r.Seq) == 0 {
			return nil, fmt.Errorf("%w: record %q has no residues", ErrEmpty, r.ID)
		}
		if len(r.Seq) != a.length {
			return nil, fmt.Errorf("%w: %q has %d sites, expected %d", ErrUnaligned, r.ID, len(r.Seq), a.length)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, r.ID)
		}
		seen[r.ID] = struct{}{}
		a.labels = append(a.labels, r.ID)
		a.seqs = append(a.seqs, r.Seq)
	}
	return a, nil
}

// Taxa returns the number of sequences.
func (a *Alignment) Taxa() int { return len(a.labels) }

// Length returns the number of sites.
func (a *Alignment) Length() int { return a.length }

// Label returns the label of taxon i.
func (a *Alignment) Label(i int) string { return a.labels[i] }

// Labels returns the labels in file order. The slice must not be modified.
func (a *Alignment) Labels() []string { return a.labels }

// Seq returns the residues of taxon i. The slice must not be modified.
func (a *Alignment) Seq(i int) []byte { return a.seqs[i] }

// Release drops the sequence data. The Alignment must not be used afterwards.
func (a *Alignment) Release() {
	if a == nil {
		return
	}
	a.labels = nil
	a.seqs = nil
	a.length = 0
}

// Released reports whether Release has been called.
func (a *Alignment) Released() bool { return a.labels == nil }
