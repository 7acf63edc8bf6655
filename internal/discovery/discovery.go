// internal/discovery/discovery.go
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions are the alignment suffixes picked up by Discover. Matching is
// case-sensitive.
var Extensions = []string{".fas", ".fna", ".fasta", ".aln"}

// IsAlignment reports whether name carries one of Extensions.
func IsAlignment(name string) bool {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Discover walks root recursively and returns every regular alignment file
// exactly once, sorted by path. Directories are never returned, whatever
// their name.
func Discover(ctx context.Context, root string) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("discovery: %s is not a directory", root)
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || !IsAlignment(d.Name()) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: walk %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}
