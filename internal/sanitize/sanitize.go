// Package sanitize rewrites alignments so that every residue outside the
// nucleotide and gap alphabet becomes a gap.
package sanitize

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"phydiff/internal/logging"
	"phydiff/internal/msa"
)

// Suffix replaces the final extension of every sanitized file.
const Suffix = ".processed.fasta"

// ErrOutputCollision means two inputs would be written to the same output.
var ErrOutputCollision = errors.New("sanitize: output collision")

// Options control a sanitizing run.
type Options struct {
	RemoveOriginal bool
	Workers        int
}

// Result describes one written file.
type Result struct {
	Input   string
	Output  string
	Records int
}

// OutputPath maps a.fasta to a.processed.fasta in the same directory.
func OutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + Suffix
}

// IsOutput reports whether path was written by a previous run.
func IsOutput(path string) bool { return strings.HasSuffix(path, Suffix) }

// Residue keeps nucleotides and gaps and turns everything else into '-'.
func Residue(b byte) byte {
	if msa.IsNucleotideResidue(b) {
		return b
	}
	return '-'
}

// File sanitizes one alignment. The output is removed again if writing
// fails; the original is only removed after the output is complete.
func File(ctx context.Context, path string, removeOriginal bool) (res Result, err error) {
	res = Result{Input: path, Output: OutputPath(path)}
	f, err := os.Create(res.Output)
	if err != nil {
		return res, fmt.Errorf("sanitize: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(res.Output)
		}
	}()

	bw := bufio.NewWriter(f)
	err = msa.ScanFASTAPath(ctx, path, func(r msa.Record) error {
		for i, b := range r.Seq {
			r.Seq[i] = Residue(b)
		}
		res.Records++
		return msa.WriteFASTA(bw, []msa.Record{r})
	})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return res, fmt.Errorf("sanitize %s: %w", path, err)
	}
	if removeOriginal {
		if err = os.Remove(path); err != nil {
			return res, fmt.Errorf("sanitize: %w", err)
		}
	}
	return res, nil
}

// Run sanitizes paths in parallel, skipping earlier outputs. The first
// failure stops the run. Inputs sharing an output path (a.fas, a.fasta) are
// rejected before anything is written.
func Run(ctx context.Context, paths []string, opts Options, log logging.Logger) ([]Result, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	var todo []string
	owner := make(map[string]string, len(paths))
	for _, p := range paths {
		if IsOutput(p) {
			log.Debug("skipping sanitized file", logging.String("path", p))
			continue
		}
		out := OutputPath(p)
		if prev, ok := owner[out]; ok {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrOutputCollision, prev, p, out)
		}
		owner[out] = p
		todo = append(todo, p)
	}

	results := make([]Result, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, p := range todo {
		g.Go(func() error {
			r, err := File(gctx, p, opts.RemoveOriginal)
			if err != nil {
				return err
			}
			results[i] = r
			log.Info("sanitized", logging.String("path", p), logging.Int("records", r.Records))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
