// Package reftools runs the external reference programs (RAxML, PhyML and
// the Pythia predictor) and times them.
package reftools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"phydiff/internal/config"
)

// ToolError reports a reference program that could not be started, exited
// unsuccessfully or produced unusable output.
type ToolError struct {
	Tool     string
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s", e.Tool, e.Path)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, " (stderr: %s)", firstLine(s))
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

// ErrStderr is reported when a tool that must stay silent wrote to stderr.
var ErrStderr = errors.New("unexpected output on stderr")

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// Invocation is the captured result of one successful subprocess call.
type Invocation struct {
	Elapsed time.Duration
	Stdout  []byte
	Stderr  []byte
}

// Command runs one configured program with a trailing path argument.
type Command struct {
	Name string
	Tool config.Tool
}

// Run executes the program with path appended to its arguments. Only the
// blocking call is timed. A non-zero exit, or stderr output when the tool
// requires silence, is a ToolError.
func (c Command) Run(ctx context.Context, path string) (Invocation, error) {
	args := append(append([]string(nil), c.Tool.Args...), path)
	cmd := exec.CommandContext(ctx, c.Tool.Command, args...)
	cmd.Dir = c.Tool.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		te := &ToolError{Tool: c.Name, Path: path, Stderr: stderr.String(), Err: err}
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			te.ExitCode = exit.ExitCode()
		}
		return Invocation{}, te
	}
	if c.Tool.RequireEmptyStderr && stderr.Len() > 0 {
		return Invocation{}, &ToolError{Tool: c.Name, Path: path, Stderr: stderr.String(), Err: ErrStderr}
	}
	return Invocation{Elapsed: elapsed, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}
