package sanitizeapp

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phydiff/internal/cliutil"
)

func TestRun(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "sub", "x.fna")
	require.NoError(t, os.MkdirAll(filepath.Dir(in), 0o755))
	require.NoError(t, os.WriteFile(in, []byte(">a\nACNT\n>b\nAC-T\n"), 0o644))

	var stdout bytes.Buffer
	require.Equal(t, cliutil.ExitOK, Run([]string{"--log-level", "warn", "--remove-original", root}, &stdout, io.Discard))
	assert.Equal(t, "sanitized 1 files (2 records)\n", stdout.String())
	assert.NoFileExists(t, in)

	got, err := os.ReadFile(filepath.Join(root, "sub", "x.processed.fasta"))
	require.NoError(t, err)
	assert.Equal(t, ">a\nAC-T\n>b\nAC-T\n", string(got))

	stdout.Reset()
	require.Equal(t, cliutil.ExitOK, Run([]string{root}, &stdout, io.Discard))
	assert.Equal(t, "sanitized 0 files (0 records)\n", stdout.String(), "outputs are not sanitized twice")
}

func TestRun_Errors(t *testing.T) {
	assert.Equal(t, cliutil.ExitUsage, Run(nil, io.Discard, io.Discard))
	assert.Equal(t, cliutil.ExitConfig, Run([]string{filepath.Join(t.TempDir(), "nope")}, io.Discard, io.Discard))

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.fasta"), []byte("ACGT\n"), 0o644))
	assert.Equal(t, cliutil.ExitFatal, Run([]string{root}, io.Discard, io.Discard))
}
