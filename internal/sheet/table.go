package sheet

// Table is an immutable, 1-indexed view of one worksheet. Derived tables
// share unmodified rows with their parent.
type Table struct {
	name  string
	rows  [][]Value
	width int
}

// Edit replaces the cell at (Row, Col), both 1-based.
type Edit struct {
	Row   int
	Col   int
	Value Value
}

// NewTable builds a table from rows. The input is copied. width is raised to
// the longest row when smaller.
func NewTable(name string, rows [][]Value, width int) *Table {
	t := &Table{name: name, rows: make([][]Value, len(rows)), width: width}
	for i, r := range rows {
		t.rows[i] = append([]Value(nil), r...)
		if len(r) > t.width {
			t.width = len(r)
		}
	}
	return t
}

// Name returns the worksheet name.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return t.width }

// Cell returns the value at (row, col). Out-of-range coordinates yield an
// empty value.
func (t *Table) Cell(row, col int) Value {
	if row < 1 || row > len(t.rows) || col < 1 {
		return Value{}
	}
	r := t.rows[row-1]
	if col > len(r) {
		return Value{}
	}
	return r[col-1]
}

// Row returns a copy of the given row padded to the table width.
func (t *Table) Row(row int) []Value {
	out := make([]Value, t.width)
	if row < 1 || row > len(t.rows) {
		return out
	}
	copy(out, t.rows[row-1])
	return out
}

// With returns a new table with the edits applied. The receiver is unchanged.
func (t *Table) With(edits ...Edit) *Table {
	next := &Table{name: t.name, rows: append([][]Value(nil), t.rows...), width: t.width}
	copied := make(map[int]bool)
	for _, e := range edits {
		if e.Row < 1 || e.Col < 1 {
			continue
		}
		for len(next.rows) < e.Row {
			next.rows = append(next.rows, nil)
		}
		i := e.Row - 1
		if !copied[i] {
			next.rows[i] = append([]Value(nil), next.rows[i]...)
			copied[i] = true
		}
		for len(next.rows[i]) < e.Col {
			next.rows[i] = append(next.rows[i], Value{})
		}
		next.rows[i][e.Col-1] = e.Value
		if e.Col > next.width {
			next.width = e.Col
		}
	}
	return next
}

// Diff lists the cells of b that differ from a, in row-major order.
func Diff(a, b *Table) []Edit {
	rows := max(a.Len(), b.Len())
	cols := max(a.Width(), b.Width())
	var edits []Edit
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			if v := b.Cell(r, c); !a.Cell(r, c).Equal(v) {
				edits = append(edits, Edit{Row: r, Col: c, Value: v})
			}
		}
	}
	return edits
}
