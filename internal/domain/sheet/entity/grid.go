package entity

// Grid is an in-memory snapshot of one destination worksheet's value
// matrix. Rows and columns are 0-indexed. Reads outside the current
// bounds return the empty string; writes grow the grid as needed, which
// mirrors how the remote sheet behaves.
type Grid struct {
	rows [][]string
}

// NewGrid wraps a value matrix. The matrix is used as-is, not copied.
func NewGrid(values [][]string) *Grid {
	return &Grid{rows: values}
}

// NumRows returns the number of rows in the snapshot.
func (g *Grid) NumRows() int {
	return len(g.rows)
}

// NumCols returns the width of the widest row.
func (g *Grid) NumCols() int {
	max := 0
	for _, row := range g.rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// Cell returns the value at (row, col), or "" when out of bounds.
func (g *Grid) Cell(row, col int) string {
	if row < 0 || col < 0 || row >= len(g.rows) || col >= len(g.rows[row]) {
		return ""
	}
	return g.rows[row][col]
}

// SetCell writes value at (row, col), growing the grid if needed.
func (g *Grid) SetCell(row, col int, value string) {
	if row < 0 || col < 0 {
		return
	}
	for row >= len(g.rows) {
		g.rows = append(g.rows, nil)
	}
	for col >= len(g.rows[row]) {
		g.rows[row] = append(g.rows[row], "")
	}
	g.rows[row][col] = value
}

// InsertColAfter inserts an empty column immediately after col in every
// row that is wide enough to be affected.
func (g *Grid) InsertColAfter(col int) {
	at := col + 1
	for i, row := range g.rows {
		if at > len(row) {
			continue
		}
		row = append(row, "")
		copy(row[at+1:], row[at:])
		row[at] = ""
		g.rows[i] = row
	}
}

// Row returns a copy of row r, or nil when out of bounds.
func (g *Grid) Row(r int) []string {
	if r < 0 || r >= len(g.rows) {
		return nil
	}
	out := make([]string, len(g.rows[r]))
	copy(out, g.rows[r])
	return out
}
