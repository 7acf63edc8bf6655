// internal/cliutil/cliutil.go
package cliutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/spf13/cobra"

	"phydiff/internal/logging"
	"phydiff/internal/version"
)

// Process exit codes shared by every phydiff command.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitConfig      = 2
	ExitFatal       = 3
	ExitInterrupted = 130
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// Exit wraps err so Execute terminates with code.
func Exit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

// ExactArgs is cobra.ExactArgs reporting a usage error.
func ExactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe.
// Useful when downstream consumers (like `head`) close early.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// Execute runs cmd with argv and maps the outcome onto an exit code.
// Usage errors print the message and usage on stderr.
func Execute(ctx context.Context, cmd *cobra.Command, argv []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(argv)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.Version = version.Version
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	err := cmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		return ExitInterrupted
	}
	if err == nil || IsBrokenPipe(err) {
		return ExitOK
	}

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		cmd.SetOut(stderr)
		_ = cmd.Usage()
		return ExitUsage
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFatal
}

// LogFlags are the logging overrides every command accepts.
type LogFlags struct {
	Level  string
	Format string
}

// Register adds --log-level and --log-format to cmd.
func (f *LogFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Level, "log-level", "info", "log level: debug | info | warn | error")
	cmd.Flags().StringVar(&f.Format, "log-format", "console", "log encoding: console | json")
}

// Logger builds a stderr logger from the flags.
func (f *LogFlags) Logger(stderr io.Writer) (logging.Logger, error) {
	log, err := logging.New(logging.Config{Level: f.Level, Format: f.Format}, stderr)
	if err != nil {
		return nil, Exit(ExitConfig, err)
	}
	return log, nil
}
