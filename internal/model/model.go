// Package model turns alignment features and ensemble instability into a raw
// difficulty score in (0,1).
package model

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"phydiff/internal/features"
)

// Weights parameterize the logistic model. Feature weights are keyed by
// features.Name; missing features weigh zero.
type Weights struct {
	Intercept        float64            `yaml:"intercept"`
	AvgRelativeRF    float64            `yaml:"avg_rel_rf"`
	UniqueTopologies float64            `yaml:"unique_topologies"`
	Features         map[string]float64 `yaml:"features"`
}

// DefaultWeights lets topological instability dominate the score.
func DefaultWeights() Weights {
	return Weights{
		Intercept:        -2.5,
		AvgRelativeRF:    4.0,
		UniqueTopologies: 2.0,
		Features: map[string]float64{
			"proportion_gaps":       0.8,
			"proportion_invariant":  -1.2,
			"num_patterns/num_taxa": 0.01,
			"entropy":               0.3,
		},
	}
}

// LoadWeights reads weights from a YAML file. Unset scalars keep their
// defaults and listed features override the default feature weights key by
// key; weigh a feature 0 to switch it off.
func LoadWeights(path string) (Weights, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("model: read weights: %w", err)
	}
	w := DefaultWeights()
	defaults := w.Features
	w.Features = nil
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return Weights{}, fmt.Errorf("model: parse weights %s: %w", path, err)
	}
	for name, c := range w.Features {
		defaults[name] = c
	}
	w.Features = defaults
	return w, nil
}

// Logistic is σ(intercept + Σ wᵢ·fᵢ + w_rf·avgRRF + w_u·uniqueProportion).
type Logistic struct {
	w    Weights
	coef [features.Count]float64
}

// NewLogistic validates feature names and builds the model.
func NewLogistic(w Weights) (*Logistic, error) {
	m := &Logistic{w: w}
	for name, c := range w.Features {
		idx := -1
		for i := 0; i < features.Count; i++ {
			if features.Name(i) == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("model: unknown feature %q", name)
		}
		m.coef[idx] = c
	}
	return m, nil
}

// Predict returns the raw difficulty.
func (m *Logistic) Predict(f *features.Vector, avgRRF, uniqueProportion float64) float64 {
	z := m.w.Intercept + m.w.AvgRelativeRF*avgRRF + m.w.UniqueTopologies*uniqueProportion
	for i, c := range m.coef {
		if c != 0 {
			z += c * f.Get(i)
		}
	}
	return 1 / (1 + math.Exp(-z))
}
