package models

// Table is a header-keyed grid of cell strings, as read from a store tab.
// Rows may be shorter than Columns; missing cells read as "".
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of col in Columns, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i, column col, or "" when absent.
func (t Table) Cell(i int, col string) string {
	j := t.Index(col)
	if j < 0 || i < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Clone returns a deep copy so callers can't mutate cached data.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// NewTable builds a Table from raw grid rows where the first row is the
// header. Headers are normalized with NormalizeHeader. An empty grid yields
// an empty Table.
func NewTable(grid [][]string) Table {
	if len(grid) == 0 {
		return Table{}
	}
	cols := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		cols[i] = NormalizeHeader(h)
	}
	rows := make([][]string, 0, len(grid)-1)
	for _, r := range grid[1:] {
		rows = append(rows, append([]string(nil), r...))
	}
	return Table{Columns: cols, Rows: rows}
}
