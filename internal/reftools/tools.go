// internal/reftools/tools.go
package reftools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"phydiff/internal/config"
	"phydiff/internal/msa"
)

// RAxML times a tree search on the alignment as given.
type RAxML struct{ Cmd Command }

// NewRAxML wraps the configured tool.
func NewRAxML(t config.Tool) *RAxML { return &RAxML{Cmd: Command{Name: "raxml", Tool: t}} }

// Run returns the wall-clock time of a successful search.
func (r *RAxML) Run(ctx context.Context, path string) (time.Duration, error) {
	inv, err := r.Cmd.Run(ctx, path)
	if err != nil {
		return 0, err
	}
	return inv.Elapsed, nil
}

// PhyML converts the alignment to relaxed PHYLIP in a private temporary
// directory and times PhyML on the copy.
type PhyML struct{ Cmd Command }

// NewPhyML wraps the configured tool.
func NewPhyML(t config.Tool) *PhyML { return &PhyML{Cmd: Command{Name: "phyml", Tool: t}} }

// Run returns the wall-clock time of a successful run. Conversion is not
// included in the timing.
func (p *PhyML) Run(ctx context.Context, path string) (time.Duration, error) {
	dir, err := os.MkdirTemp("", "phydiff-phyml-*")
	if err != nil {
		return 0, &ToolError{Tool: p.Cmd.Name, Path: path, Err: err}
	}
	defer os.RemoveAll(dir)

	phy := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".phy")
	if err := ConvertToPhylip(path, phy); err != nil {
		return 0, &ToolError{Tool: p.Cmd.Name, Path: path, Err: err}
	}
	inv, err := p.Cmd.Run(ctx, phy)
	if err != nil {
		return 0, err
	}
	return inv.Elapsed, nil
}

// ConvertToPhylip rewrites the FASTA alignment at src as relaxed PHYLIP at dst.
func ConvertToPhylip(src, dst string) error {
	aln, err := msa.Load(src, msa.FormatFASTA)
	if err != nil {
		return fmt.Errorf("convert to phylip: %w", err)
	}
	defer aln.Release()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("convert to phylip: %w", err)
	}
	if err := msa.WritePhylip(f, aln); err != nil {
		_ = f.Close()
		return fmt.Errorf("convert to phylip: %w", err)
	}
	return f.Close()
}

// Pythia runs the reference difficulty predictor, which prints a single
// float on stdout.
type Pythia struct{ Cmd Command }

// NewPythia wraps the configured tool.
func NewPythia(t config.Tool) *Pythia { return &Pythia{Cmd: Command{Name: "pythia", Tool: t}} }

// Predict returns the elapsed time and the predicted difficulty.
func (p *Pythia) Predict(ctx context.Context, path string) (time.Duration, float64, error) {
	inv, err := p.Cmd.Run(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	out := strings.TrimSpace(string(inv.Stdout))
	d, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, 0, &ToolError{Tool: p.Cmd.Name, Path: path, Err: fmt.Errorf("parse difficulty %q: %w", out, err)}
	}
	return inv.Elapsed, d, nil
}
