// Package difficulty estimates how hard it is to infer a reliable tree from
// an alignment. It builds an ensemble of seeded parsimony trees, reconciles
// their leaf numbering, measures pairwise Robinson-Foulds disagreement and
// feeds that signal with alignment features to a difficulty model.
//
// Every numeric capability is an interface so the orchestration can be
// tested against deterministic fakes.
package difficulty

import (
	"phydiff/internal/features"
	"phydiff/internal/model"
	"phydiff/internal/msa"
	"phydiff/internal/phylo"
)

// AlignmentLoader reads an alignment from disk.
type AlignmentLoader interface {
	Load(path string, format msa.Format) (*msa.Alignment, error)
}

// TreeBuilder builds one tree per seed. The score is informational.
type TreeBuilder interface {
	BuildTree(aln *msa.Alignment, seed uint64, rm *msa.ResidueMap) (*phylo.Tree, uint, error)
}

// SplitExtractor turns a tree into its bipartition set.
type SplitExtractor interface {
	ExtractSplit(t *phylo.Tree, taxa int) (*phylo.Split, error)
}

// DistanceMetric compares two bipartition sets.
type DistanceMetric interface {
	RFDistance(a, b *phylo.Split, taxa int) int
}

// FeatureExtractor summarizes an alignment.
type FeatureExtractor interface {
	ComputeFeatures(aln *msa.Alignment, rm *msa.ResidueMap) (*features.Vector, error)
}

// DifficultyModel maps features and ensemble statistics to a raw score.
type DifficultyModel interface {
	Predict(f *features.Vector, avgRelativeRF, uniqueProportion float64) float64
}

// Capabilities bundles the collaborators of an Estimator.
type Capabilities struct {
	Loader   AlignmentLoader
	Builder  TreeBuilder
	Splits   SplitExtractor
	Distance DistanceMetric
	Features FeatureExtractor
	Model    DifficultyModel
}

// Native wires the Go reference implementations around m.
func Native(m DifficultyModel) Capabilities {
	return Capabilities{
		Loader:   msa.Loader{},
		Builder:  phylo.StepwiseBuilder{},
		Splits:   phylo.Splitter{},
		Distance: phylo.RF{},
		Features: features.Extractor{},
		Model:    m,
	}
}

// Compile-time checks: the reference implementations satisfy the contracts.
var (
	_ AlignmentLoader  = msa.Loader{}
	_ TreeBuilder      = phylo.StepwiseBuilder{}
	_ SplitExtractor   = phylo.Splitter{}
	_ DistanceMetric   = phylo.RF{}
	_ FeatureExtractor = features.Extractor{}
	_ DifficultyModel  = (*model.Logistic)(nil)
)
