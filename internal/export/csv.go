// Package export renders prospects into the CSV layout downstream sales
// tooling imports.
package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// CSVWriter streams prospects as CSV rows. The header goes out before the
// first record so consumers can tail the file mid-run.
type CSVWriter struct {
	w           *csv.Writer
	closer      io.Closer
	wroteHeader bool
}

// NewCSVWriter wraps an open writer. The caller owns w's lifetime.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// NewCSVFile creates (or truncates) path and returns a writer that owns the
// file handle.
func NewCSVFile(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: create %s", path)
	}
	return &CSVWriter{w: csv.NewWriter(f), closer: f}, nil
}

// Write appends one prospect row, emitting the header first when needed.
func (c *CSVWriter) Write(p model.Prospect) error {
	if !c.wroteHeader {
		if err := c.w.Write(model.CSVHeader); err != nil {
			return eris.Wrap(err, "export: write header")
		}
		c.wroteHeader = true
	}
	if err := c.w.Write(p.CSVRow()); err != nil {
		return eris.Wrap(err, "export: write row")
	}
	c.w.Flush()
	return eris.Wrap(c.w.Error(), "export: flush")
}

// Close flushes buffered rows and releases the file if this writer owns one.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}
	if c.closer != nil {
		return eris.Wrap(c.closer.Close(), "export: close file")
	}
	return nil
}
