// internal/msa/phylip.go
package msa

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReadPhylip parses relaxed PHYLIP (sequential or interleaved). Names are the
// first whitespace token of the first block; whitespace inside sequences is ignored.
func ReadPhylip(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)

	next := func() ([]byte, bool) {
		for sc.Scan() {
			if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
				return line, true
			}
		}
		return nil, false
	}

	hdr, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("phylip scan: %w", err)
		}
		return nil, ErrEmpty
	}
	f := bytes.Fields(hdr)
	if len(f) < 2 {
		return nil, fmt.Errorf("phylip: malformed header %q", hdr)
	}
	n, err := strconv.Atoi(string(f[0]))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("phylip: bad taxon count %q", f[0])
	}
	length, err := strconv.Atoi(string(f[1]))
	if err != nil || length < 0 {
		return nil, fmt.Errorf("phylip: bad sequence length %q", f[1])
	}
	if n == 0 {
		return nil, ErrEmpty
	}

	recs := make([]Record, n)
	for i := 0; i < n; i++ {
		line, ok := next()
		if !ok {
			return nil, fmt.Errorf("phylip: expected %d taxa, found %d", n, i)
		}
		toks := bytes.Fields(line)
		recs[i].ID = string(toks[0])
		recs[i].Seq = make([]byte, 0, length)
		for _, t := range toks[1:] {
			recs[i].Seq = append(recs[i].Seq, t...)
		}
	}

	// interleaved continuation blocks
	for i := 0; ; i = (i + 1) % n {
		if done(recs, length) {
			break
		}
		line, ok := next()
		if !ok {
			return nil, fmt.Errorf("%w: phylip data ended before %d sites", ErrUnaligned, length)
		}
		for _, t := range bytes.Fields(line) {
			recs[i].Seq = append(recs[i].Seq, t...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("phylip scan: %w", err)
	}
	for _, r := range recs {
		if len(r.Seq) != length {
			return nil, fmt.Errorf("%w: %q has %d sites, header says %d", ErrUnaligned, r.ID, len(r.Seq), length)
		}
	}
	return recs, nil
}

func done(recs []Record, length int) bool {
	for _, r := range recs {
		if len(r.Seq) < length {
			return false
		}
	}
	return true
}

// WritePhylip writes the alignment as relaxed sequential PHYLIP.
func WritePhylip(w io.Writer, a *Alignment) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", a.Taxa(), a.Length()); err != nil {
		return err
	}
	for i := 0; i < a.Taxa(); i++ {
		if _, err := fmt.Fprintf(bw, "%s %s\n", a.Label(i), a.Seq(i)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
