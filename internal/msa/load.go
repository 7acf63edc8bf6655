// internal/msa/load.go
package msa

import "fmt"

// Load reads and validates an alignment file.
func Load(path string, format Format) (*Alignment, error) {
	var (
		recs []Record
		err  error
	)
	switch format {
	case FormatFASTA, "":
		recs, err = ReadFASTA(path)
	case FormatPhylip:
		rc, oerr := openReader(path)
		if oerr != nil {
			return nil, oerr
		}
		recs, err = ReadPhylip(rc)
		_ = rc.Close()
	default:
		return nil, fmt.Errorf("msa: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return New(recs)
}

// Loader satisfies the estimator's loading capability with Load.
type Loader struct{}

func (Loader) Load(path string, format Format) (*Alignment, error) { return Load(path, format) }
