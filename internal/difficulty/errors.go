// internal/difficulty/errors.go
package difficulty

import (
	"errors"
	"fmt"
)

// ErrPrecondition marks input rejected before any work started
// (too few replicates, too few taxa, negative counts).
var ErrPrecondition = errors.New("difficulty: precondition violated")

// LoadError reports a missing, unreadable, unparseable or empty alignment.
// It is fatal for one dataset only.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// BuildError reports a failed tree build for one replicate.
type BuildError struct {
	Replicate int
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build replicate %d: %v", e.Replicate, e.Err)
}
func (e *BuildError) Unwrap() error { return e.Err }

// ReconciliationError means two builds over the same alignment disagree on
// the taxon set. It is an internal-consistency violation and must abort the
// whole batch rather than a single dataset.
type ReconciliationError struct {
	Replicate int
	Label     string
	Reason    string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile replicate %d: label %q %s", e.Replicate, e.Label, e.Reason)
}

// IsBatchFatal reports whether err must stop every remaining dataset.
func IsBatchFatal(err error) bool {
	var re *ReconciliationError
	return errors.As(err, &re)
}
