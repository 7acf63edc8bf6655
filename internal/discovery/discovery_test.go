package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(">a\nACGT\n"), 0o644))
}

func TestDiscover_Nested(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "x.fasta"))
	touch(t, filepath.Join(root, "a", "b", "y.aln"))
	touch(t, filepath.Join(root, "a", "b", "z.txt"))
	touch(t, filepath.Join(root, "top.fna"))
	touch(t, filepath.Join(root, "upper.FASTA"))
	touch(t, filepath.Join(root, "short.fas"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.fasta"), 0o755))

	got, err := Discover(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b", "y.aln"),
		filepath.Join(root, "a", "x.fasta"),
		filepath.Join(root, "short.fas"),
		filepath.Join(root, "top.fna"),
	}, got)
}

func TestDiscover_Empty(t *testing.T) {
	got, err := Discover(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_BadRoot(t *testing.T) {
	root := t.TempDir()
	_, err := Discover(context.Background(), filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	f := filepath.Join(root, "file.fasta")
	touch(t, f)
	_, err = Discover(context.Background(), f)
	assert.ErrorContains(t, err, "not a directory")
}

func TestDiscover_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "x.fasta"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Discover(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsAlignment(t *testing.T) {
	for name, want := range map[string]bool{
		"a.fas": true, "a.fna": true, "a.fasta": true, "a.aln": true,
		"a.fa": false, "a.Fasta": false, "a.fasta.gz": false, "fasta": false,
	} {
		assert.Equal(t, want, IsAlignment(name), name)
	}
}
