package steps

import (
	"errors"
	"fmt"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/ir"
)

var (
	ErrEmptyHeader     = errors.New("table header is empty")
	ErrRaggedTable     = errors.New("table row width differs from header")
	ErrDuplicateColumn = errors.New("table header repeats a column")
)

// RowError wraps the error of one table row.
type RowError struct {
	Row int // 1-based data row
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Table is decoded tabular step input: a header and string rows.
// The first column is always the identifier.
type Table struct {
	header []string
	rows   [][]string
}

// NewTable validates and builds a table. Column names must be unique and
// every row must have the header's width.
func NewTable(header []string, rows ...[]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrEmptyHeader
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("column %q: %w", name, ErrDuplicateColumn)
		}
		seen[name] = true
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d: %w", i+1, len(row), len(header), ErrRaggedTable)
		}
	}
	return &Table{header: header, rows: rows}, nil
}

// TableFromRows builds a table whose first row is the header.
func TableFromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyHeader
	}
	return NewTable(rows[0], rows[1:]...)
}

// Header returns the column names.
func (t *Table) Header() []string {
	return t.header
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Identifier returns the first cell of row i.
func (t *Table) Identifier(i int) string {
	return t.rows[i][0]
}

// Row returns every cell of row i as a field set, identifier column included.
func (t *Table) Row(i int) fixture.FieldSet {
	return t.fields(i, 0)
}

// Expected returns row i without the identifier column, the fields an
// assertion compares.
func (t *Table) Expected(i int) fixture.FieldSet {
	return t.fields(i, 1)
}

func (t *Table) fields(i, from int) fixture.FieldSet {
	fs := make(fixture.FieldSet, 0, len(t.header)-from)
	for col := from; col < len(t.header); col++ {
		fs = append(fs, fixture.Field{Name: t.header[col], Value: ir.IRString(t.rows[i][col])})
	}
	return fs
}
