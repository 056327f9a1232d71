package xps

// TableObject is a grid of text cells. Cells are addressed by 0-based column
// and row; a cell with ColSpan or RowSpan > 1 covers its neighbours, which are
// then not rendered.
type TableObject struct {
	Component
	Columns []*TableColumn
	Rows    []*TableRow
}

type TableColumn struct {
	Width float64
}

type TableRow struct {
	Height float64
	Cells  []*TableCell

	index int // 0-based
}

// TableCell is a text object positioned by its table.
type TableCell struct {
	TextObject
	ColSpan int // 0 and 1 both mean no span
	RowSpan int

	row    *TableRow
	column int // 0-based
}

func (t *TableObject) AddColumn(width float64) *TableColumn {
	c := &TableColumn{Width: width}
	t.Columns = append(t.Columns, c)
	return c
}

func (t *TableObject) AddRow(height float64) *TableRow {
	r := &TableRow{
		Height: height,
		index:  len(t.Rows),
	}
	t.Rows = append(t.Rows, r)
	return r
}

// AddCell appends a cell in the next column of the row.
func (r *TableRow) AddCell() *TableCell {
	c := &TableCell{
		row:    r,
		column: len(r.Cells),
	}
	r.Cells = append(r.Cells, c)
	return c
}

// Position returns the 0-based column and row of a cell created by AddCell.
func (c *TableCell) Position() (col, row int) {
	return c.column, c.row.index
}

// Cell returns the cell at the given column and row, or nil.
func (t *TableObject) Cell(col, row int) *TableCell {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r.Cells) {
		return nil
	}
	return r.Cells[col]
}

func span(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// IsInsideSpan reports whether the cell at (col, row) is covered by the span
// of another cell.
func (t *TableObject) IsInsideSpan(col, row int) bool {
	for j := 0; j <= row && j < len(t.Rows); j++ {
		for i, c := range t.Rows[j].Cells {
			if i > col {
				break
			}
			if i == col && j == row {
				continue
			}
			if c == nil {
				continue
			}
			if col < i+span(c.ColSpan) && row < j+span(c.RowSpan) {
				return true
			}
		}
	}
	return false
}

// cellBounds returns the box of the cell at (col, row) relative to the table,
// extended over its spanned columns and rows.
func (t *TableObject) cellBounds(col, row int) Rect {
	var r Rect
	for i := 0; i < col && i < len(t.Columns); i++ {
		r.Left += t.Columns[i].Width
	}
	for j := 0; j < row; j++ {
		r.Top += t.Rows[j].Height
	}
	c := t.Cell(col, row)
	for i := col; i < col+span(c.ColSpan) && i < len(t.Columns); i++ {
		r.Width += t.Columns[i].Width
	}
	for j := row; j < row+span(c.RowSpan) && j < len(t.Rows); j++ {
		r.Height += t.Rows[j].Height
	}
	return r
}

// size returns the total width and height of the grid.
func (t *TableObject) size() (w, h float64) {
	for _, c := range t.Columns {
		w += c.Width
	}
	for _, r := range t.Rows {
		h += r.Height
	}
	return
}
