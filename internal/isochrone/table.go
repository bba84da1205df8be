package isochrone

import (
	"fmt"
)

// Table is a column-major table of model points. Tables returned by the
// reader and the filters are never modified afterwards; callers must not
// write into the slices returned by Column.
type Table struct {
	names   []string
	index   map[string]int
	columns [][]float64
}

// NewTable builds a table from ordered column names and equally long columns.
func NewTable(names []string, columns [][]float64) (*Table, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("got %d column names for %d columns", len(names), len(columns))
	}

	t := &Table{
		names:   make([]string, 0, len(names)),
		index:   make(map[string]int, len(names)),
		columns: make([][]float64, 0, len(columns)),
	}
	for i, name := range names {
		if err := t.addColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) addColumn(name string, values []float64) error {
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("duplicate column %q", name)
	}
	if len(t.columns) > 0 && len(values) != len(t.columns[0]) {
		return fmt.Errorf("column %q has %d rows, expected %d", name, len(values), len(t.columns[0]))
	}
	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	t.columns = append(t.columns, values)
	return nil
}

func (t *Table) rename(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, from)
	}
	if _, exists := t.index[to]; exists {
		return fmt.Errorf("duplicate column %q", to)
	}
	delete(t.index, from)
	t.index[to] = i
	t.names[i] = to
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0])
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return t.columns[i], nil
}

// Value returns a single cell.
func (t *Table) Value(name string, row int) (float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	if row < 0 || row >= len(col) {
		return 0, fmt.Errorf("row %d out of range [0, %d)", row, len(col))
	}
	return col[row], nil
}

// Row returns one row keyed by column name.
func (t *Table) Row(row int) (map[string]float64, error) {
	if row < 0 || row >= t.Len() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, t.Len())
	}
	out := make(map[string]float64, len(t.names))
	for i, name := range t.names {
		out[name] = t.columns[i][row]
	}
	return out, nil
}

// Where returns the rows whose value in column name satisfies keep. Every
// column and the original row order are preserved.
func (t *Table) Where(name string, keep func(float64) bool) (*Table, error) {
	key, err := t.Column(name)
	if err != nil {
		return nil, err
	}

	var rows []int
	for i, v := range key {
		if keep(v) {
			rows = append(rows, i)
		}
	}

	out := &Table{
		names:   t.Columns(),
		index:   make(map[string]int, len(t.index)),
		columns: make([][]float64, len(t.columns)),
	}
	for name, i := range t.index {
		out.index[name] = i
	}
	for c, col := range t.columns {
		subset := make([]float64, len(rows))
		for j, r := range rows {
			subset[j] = col[r]
		}
		out.columns[c] = subset
	}
	return out, nil
}
