package cli

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
)

// RowWriter writes generated rows in an output format.
type RowWriter interface {
	Write(row generator.Row) error

	// Flush writes any buffered output. It must be called once after the
	// last row.
	Flush() error
}

// NewRowWriter returns the writer for format ("json" or "csv"). columns
// fixes the CSV column order.
func NewRowWriter(format string, w io.Writer, columns []ir.Field) (RowWriter, error) {
	switch format {
	case "json":
		return &jsonLinesWriter{w: bufio.NewWriter(w)}, nil
	case "csv":
		return &csvWriter{w: csv.NewWriter(w), columns: columns}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// jsonLinesWriter writes one canonical JSON object per line.
type jsonLinesWriter struct {
	w *bufio.Writer
}

func (j *jsonLinesWriter) Write(row generator.Row) error {
	data, err := ir.MarshalCanonical(row.Data)
	if err != nil {
		return fmt.Errorf("row %d: %w", row.Seq, err)
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

func (j *jsonLinesWriter) Flush() error { return j.w.Flush() }

// csvWriter writes a header of the declared fields, then one record per
// row. Null is written as an empty cell.
type csvWriter struct {
	w       *csv.Writer
	columns []ir.Field
	started bool
}

func (c *csvWriter) Write(row generator.Row) error {
	if err := c.header(); err != nil {
		return err
	}
	record := make([]string, len(c.columns))
	for i, f := range c.columns {
		v, ok := row.Data.Get(f)
		if !ok || ir.IsNull(v) {
			continue
		}
		record[i] = v.String()
	}
	return c.w.Write(record)
}

func (c *csvWriter) header() error {
	if c.started {
		return nil
	}
	c.started = true
	names := make([]string, len(c.columns))
	for i, f := range c.columns {
		names[i] = f.Name
	}
	return c.w.Write(names)
}

// Flush writes the header even when the run produced no rows.
func (c *csvWriter) Flush() error {
	if err := c.header(); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
