// -----------------------------------------------------------------------
// Table - Ordered, typed tabular payload returned by market-data vendors
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CellKind enumerates the value types a table cell can carry.
type CellKind int

const (
	CellNull CellKind = iota
	CellInt
	CellFloat
	CellBool
	CellString
	CellTime
)

// Cell is a single typed value inside a Table row.
type Cell struct {
	Kind CellKind
	I    int64
	F    float64
	B    bool
	S    string
	T    time.Time
}

// Null returns the null cell.
func Null() Cell { return Cell{Kind: CellNull} }

// Int wraps an integer cell.
func Int(v int64) Cell { return Cell{Kind: CellInt, I: v} }

// Float wraps a float cell.
func Float(v float64) Cell { return Cell{Kind: CellFloat, F: v} }

// Bool wraps a boolean cell.
func Bool(v bool) Cell { return Cell{Kind: CellBool, B: v} }

// String wraps a string cell.
func String(v string) Cell { return Cell{Kind: CellString, S: v} }

// Time wraps a timestamp cell.
func Time(v time.Time) Cell { return Cell{Kind: CellTime, T: v} }

// CellFrom converts a decoded JSON value into a typed cell. Whole floats stay
// floats; vendors encode integral identifiers as strings.
func CellFrom(v interface{}) Cell {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case float64:
		return Float(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case string:
		return String(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		if f, err := x.Float64(); err == nil {
			return Float(f)
		}
		return String(x.String())
	case time.Time:
		return Time(x)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// IsNull reports whether the cell carries no value.
func (c Cell) IsNull() bool { return c.Kind == CellNull }

// Value returns the cell as a plain Go value for JSON encoding.
func (c Cell) Value() interface{} {
	switch c.Kind {
	case CellInt:
		return c.I
	case CellFloat:
		return c.F
	case CellBool:
		return c.B
	case CellString:
		return c.S
	case CellTime:
		return c.T.Format("2006-01-02 15:04:05")
	default:
		return nil
	}
}

// Text renders the cell for prompt and log output.
func (c Cell) Text() string {
	switch c.Kind {
	case CellInt:
		return strconv.FormatInt(c.I, 10)
	case CellFloat:
		return strconv.FormatFloat(c.F, 'f', -1, 64)
	case CellBool:
		return strconv.FormatBool(c.B)
	case CellString:
		return c.S
	case CellTime:
		return c.T.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Float64 coerces numeric and numeric-string cells; ok is false otherwise.
func (c Cell) Float64() (float64, bool) {
	switch c.Kind {
	case CellInt:
		return float64(c.I), true
	case CellFloat:
		return c.F, true
	case CellString:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.S), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MarshalJSON encodes the cell as its native JSON scalar.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// UnmarshalJSON decodes a JSON scalar into a typed cell.
func (c *Cell) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*c = CellFrom(v)
	return nil
}

// Table is an ordered-column tabular result. An empty table (zero rows) is a
// valid, non-error payload.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// NewTable creates an empty table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: [][]Cell{}}
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Width returns the column count.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// IsEmpty reports whether the table is nil or has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// AppendRow adds a row, padding or truncating to the column count.
func (t *Table) AppendRow(cells ...Cell) {
	row := make([]Cell, len(t.Columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = Null()
		}
	}
	t.Rows = append(t.Rows, row)
}

// Col returns the index of the named column.
func (t *Table) Col(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// ColFold returns the index of the named column, case-insensitively.
func (t *Table) ColFold(name string) (int, bool) {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the cell at (row, column name); the null cell when absent.
func (t *Table) Cell(row int, name string) Cell {
	idx, ok := t.Col(name)
	if !ok || row < 0 || row >= t.Len() {
		return Null()
	}
	return t.Rows[row][idx]
}

// Select returns a new table containing only the named columns, in the given
// order. Unknown names are skipped; selecting nothing returns a zero-width
// table with no rows.
func (t *Table) Select(columns []string) *Table {
	idx := make([]int, 0, len(columns))
	kept := make([]string, 0, len(columns))
	for _, name := range columns {
		if i, ok := t.Col(name); ok {
			idx = append(idx, i)
			kept = append(kept, name)
		}
	}
	out := NewTable(kept...)
	if len(kept) == 0 {
		return out
	}
	for _, row := range t.Rows {
		cells := make([]Cell, len(idx))
		for j, i := range idx {
			cells[j] = row[i]
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// Tail returns the last n rows (the whole table when n >= Len).
func (t *Table) Tail(n int) *Table {
	if t == nil || n < 0 {
		return NewTable()
	}
	out := NewTable(t.Columns...)
	start := t.Len() - n
	if start < 0 {
		start = 0
	}
	out.Rows = append(out.Rows, t.Rows[start:]...)
	return out
}

// timeCellLayouts are tried in order when interpreting a cell as a timestamp.
var timeCellLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
	time.RFC3339,
}

// TimeAt interprets the cell at (row, col index) as a timestamp.
func (t *Table) TimeAt(row, col int) (time.Time, bool) {
	if row < 0 || row >= t.Len() || col < 0 || col >= t.Width() {
		return time.Time{}, false
	}
	c := t.Rows[row][col]
	switch c.Kind {
	case CellTime:
		return c.T, true
	case CellString:
		s := strings.TrimSpace(c.S)
		for _, layout := range timeCellLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	case CellInt:
		// Unix seconds or milliseconds
		if c.I > 1e12 {
			return time.UnixMilli(c.I), true
		}
		if c.I > 1e9 {
			return time.Unix(c.I, 0), true
		}
	}
	return time.Time{}, false
}

// SortByTimeDesc sorts rows newest-first by the named column. Rows whose cell
// does not parse as a time sink to the end in their original order.
func (t *Table) SortByTimeDesc(column string) {
	col, ok := t.Col(column)
	if !ok {
		return
	}
	type keyed struct {
		row []Cell
		ts  time.Time
		ok  bool
		pos int
	}
	rows := make([]keyed, len(t.Rows))
	for i, row := range t.Rows {
		ts, parsed := t.TimeAt(i, col)
		rows[i] = keyed{row: row, ts: ts, ok: parsed, pos: i}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].ok != rows[b].ok {
			return rows[a].ok
		}
		if !rows[a].ok {
			return rows[a].pos < rows[b].pos
		}
		return rows[a].ts.After(rows[b].ts)
	})
	for i := range rows {
		t.Rows[i] = rows[i].row
	}
}

// Records converts the table to record orientation for artifact persistence.
// An empty table yields an empty, non-nil slice.
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, t.Len())
	if t == nil {
		return out
	}
	for _, row := range t.Rows {
		rec := make(map[string]interface{}, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i].Value()
			}
		}
		out = append(out, rec)
	}
	return out
}

// Render produces a compact pipe-separated text block for LLM prompts.
func (t *Table) Render() string {
	if t.IsEmpty() {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, " | "))
	b.WriteString("\n")
	for _, row := range t.Rows {
		parts := make([]string, len(row))
		for i, c := range row {
			parts[i] = c.Text()
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
