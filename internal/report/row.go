// internal/report/row.go
package report

import (
	"fmt"
	"strconv"
	"time"

	"phydiff/internal/msa"
)

// Columns is the fixed header of the evaluation report.
var Columns = []string{
	"path",
	"difficulty",
	"avg_rel_rf",
	"unique_topology_proportion",
	"n_taxa",
	"min_seq_len",
	"max_seq_len",
	"alphabet",
	"raxml_ms",
	"phyml_ms",
	"pythia_ms",
	"pythia_difficulty",
}

// Row is one evaluated file. Nil fields are stages that did not run or
// failed and are written as empty cells.
type Row struct {
	Path                     string
	Difficulty               *float64
	AvgRelativeRF            *float64
	UniqueTopologyProportion *float64
	Dims                     *msa.Dimensions
	RAxML                    *time.Duration
	PhyML                    *time.Duration
	Pythia                   *time.Duration
	PythiaDifficulty         *float64
}

// Float returns a pointer to v, for filling optional Row fields.
func Float(v float64) *float64 { return &v }

// Duration returns a pointer to d.
func Duration(d time.Duration) *time.Duration { return &d }

func (r Row) cells() []string {
	out := []string{
		r.Path,
		fmtFloat(r.Difficulty),
		fmtFloat(r.AvgRelativeRF),
		fmtFloat(r.UniqueTopologyProportion),
		"", "", "", "",
		fmtMillis(r.RAxML),
		fmtMillis(r.PhyML),
		fmtMillis(r.Pythia),
		fmtFloat(r.PythiaDifficulty),
	}
	if r.Dims != nil {
		out[4] = strconv.Itoa(r.Dims.Taxa)
		out[5] = strconv.Itoa(r.Dims.MinSeqLen)
		out[6] = strconv.Itoa(r.Dims.MaxSeqLen)
		out[7] = r.Dims.Alphabet.String()
	}
	return out
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func fmtMillis(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*d)/float64(time.Millisecond), 'f', 3, 64)
}

func parseRow(rec []string) (Row, error) {
	if len(rec) != len(Columns) {
		return Row{}, fmt.Errorf("want %d columns, have %d", len(Columns), len(rec))
	}
	r := Row{Path: rec[0]}
	var err error
	floats := []struct {
		dst **float64
		s   string
	}{
		{&r.Difficulty, rec[1]},
		{&r.AvgRelativeRF, rec[2]},
		{&r.UniqueTopologyProportion, rec[3]},
		{&r.PythiaDifficulty, rec[11]},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(f.s); err != nil {
			return Row{}, err
		}
	}
	durations := []struct {
		dst **time.Duration
		s   string
	}{
		{&r.RAxML, rec[8]},
		{&r.PhyML, rec[9]},
		{&r.Pythia, rec[10]},
	}
	for _, d := range durations {
		ms, err := parseFloat(d.s)
		if err != nil {
			return Row{}, err
		}
		if ms != nil {
			*d.dst = Duration(time.Duration(*ms * float64(time.Millisecond)))
		}
	}

	if rec[4] == "" {
		return r, nil
	}
	var dims msa.Dimensions
	if dims.Taxa, err = strconv.Atoi(rec[4]); err != nil {
		return Row{}, fmt.Errorf("n_taxa: %w", err)
	}
	if dims.MinSeqLen, err = strconv.Atoi(rec[5]); err != nil {
		return Row{}, fmt.Errorf("min_seq_len: %w", err)
	}
	if dims.MaxSeqLen, err = strconv.Atoi(rec[6]); err != nil {
		return Row{}, fmt.Errorf("max_seq_len: %w", err)
	}
	if dims.Alphabet, err = msa.ParseAlphabet(rec[7]); err != nil {
		return Row{}, err
	}
	r.Dims = &dims
	return r, nil
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
