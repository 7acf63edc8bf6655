// internal/msa/dimensions.go
package msa

import (
	"context"
	"fmt"
)

// Dimensions summarizes a sequence file without requiring it to be aligned.
type Dimensions struct {
	Taxa      int
	MinSeqLen int
	MaxSeqLen int
	Alphabet  Alphabet
}

// Uniform reports whether every sequence has the same length.
func (d Dimensions) Uniform() bool { return d.MinSeqLen == d.MaxSeqLen }

// ReadDimensions streams a FASTA file and reports taxon count, sequence length
// range and alphabet. The alphabet starts as Nucleotide and switches to Protein
// for good on the first residue outside {A,C,G,T,-,_} in either case.
func ReadDimensions(ctx context.Context, path string) (Dimensions, error) {
	d := Dimensions{Alphabet: Nucleotide}
	err := ScanFASTAPath(ctx, path, func(r Record) error {
		d.add(r)
		return nil
	})
	return d, err
}

// ReadDimensionsFormat is ReadDimensions for either input format. PHYLIP is
// read whole since its records can be interleaved.
func ReadDimensionsFormat(ctx context.Context, path string, format Format) (Dimensions, error) {
	switch format {
	case FormatFASTA, "":
		return ReadDimensions(ctx, path)
	case FormatPhylip:
	default:
		return Dimensions{}, fmt.Errorf("msa: unknown format %q", format)
	}
	rc, err := openReader(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer rc.Close()
	recs, err := ReadPhylip(rc)
	if err != nil {
		return Dimensions{}, fmt.Errorf("%s: %w", path, err)
	}
	d := Dimensions{Alphabet: Nucleotide}
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return Dimensions{}, err
		}
		d.add(r)
	}
	return d, nil
}

func (d *Dimensions) add(r Record) {
	n := len(r.Seq)
	if d.Taxa == 0 || n < d.MinSeqLen {
		d.MinSeqLen = n
	}
	if n > d.MaxSeqLen {
		d.MaxSeqLen = n
	}
	d.Taxa++
	if d.Alphabet == Nucleotide {
		for _, b := range r.Seq {
			if !IsNucleotideResidue(b) {
				d.Alphabet = Protein
				break
			}
		}
	}
}
