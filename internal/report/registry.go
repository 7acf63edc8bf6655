// internal/report/registry.go
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Writers maps an output format onto its row writer.
var Writers = map[string]func(io.Writer, []Row) error{
	"csv":   WriteCSV,
	"tsv":   WriteTSV,
	"jsonl": WriteJSONL,
}

// Formats lists the registered formats in order.
func Formats() []string {
	out := make([]string, 0, len(Writers))
	for f := range Writers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Write dispatches rows to the writer registered for format.
func Write(format string, w io.Writer, rows []Row) error {
	fn, ok := Writers[format]
	if !ok {
		return fmt.Errorf("unknown report format %q (have %s)", format, strings.Join(Formats(), ", "))
	}
	return fn(w, rows)
}

// WriteTSV writes the report columns tab separated with a header line.
func WriteTSV(w io.Writer, rows []Row) error {
	if _, err := io.WriteString(w, strings.Join(Columns, "\t")+"\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := io.WriteString(w, strings.Join(r.cells(), "\t")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSONL writes one object per row keyed by column name. Empty cells
// are omitted.
func WriteJSONL(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		obj := make(map[string]string, len(Columns))
		for i, c := range r.cells() {
			if c != "" {
				obj[Columns[i]] = c
			}
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}
