// internal/report/summary.go
package report

import (
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Summary describes one evaluation run.
type Summary struct {
	RunID             string        `yaml:"run_id"`
	Root              string        `yaml:"root"`
	Output            string        `yaml:"output"`
	StartedAt         time.Time     `yaml:"started_at"`
	Elapsed           time.Duration `yaml:"elapsed"`
	Files             int           `yaml:"files"`
	Estimated         int           `yaml:"estimated"`
	Failed            int           `yaml:"failed"`
	Replicates        int           `yaml:"replicates"`
	PredictDifficulty bool          `yaml:"predict_difficulty"`
	RunReference      bool          `yaml:"run_reference_aligners"`
	ReferenceFailures int           `yaml:"reference_failures"`
	Hardest           []string      `yaml:"hardest,omitempty"`
}

// NewSummary stamps a fresh run id and start time.
func NewSummary(root string) *Summary {
	return &Summary{RunID: uuid.NewString(), Root: root, StartedAt: time.Now().UTC()}
}

// WriteSummary encodes s as YAML.
func WriteSummary(w io.Writer, s *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// WriteSummaryFile writes s to path atomically.
func WriteSummaryFile(path string, s *Summary) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteSummary(w, s) })
}
