package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTableSelect(t *testing.T) {
	tbl := NewTable("ts_code", "trade_date", "close", "pe")
	tbl.AppendRow(String("000001.SZ"), String("20250820"), Float(11.2), Float(5.1))
	tbl.AppendRow(String("000001.SZ"), String("20250821"), Float(11.4), Float(5.2))

	tests := []struct {
		name     string
		columns  []string
		wantCols []string
		wantRows int
	}{
		{
			name:     "subset in requested order",
			columns:  []string{"close", "trade_date"},
			wantCols: []string{"close", "trade_date"},
			wantRows: 2,
		},
		{
			name:     "unknown columns skipped",
			columns:  []string{"close", "volume"},
			wantCols: []string{"close"},
			wantRows: 2,
		},
		{
			name:     "nothing kept yields zero-width empty table",
			columns:  []string{"volume", "open"},
			wantCols: []string{},
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tbl.Select(tt.columns)
			if got.Width() != len(tt.wantCols) {
				t.Fatalf("Width() = %d, want %d", got.Width(), len(tt.wantCols))
			}
			for i, col := range tt.wantCols {
				if got.Columns[i] != col {
					t.Errorf("Columns[%d] = %q, want %q", i, got.Columns[i], col)
				}
			}
			if got.Len() != tt.wantRows {
				t.Errorf("Len() = %d, want %d", got.Len(), tt.wantRows)
			}
		})
	}
}

func TestTableTail(t *testing.T) {
	tbl := NewTable("n")
	for i := 0; i < 150; i++ {
		tbl.AppendRow(Int(int64(i)))
	}

	tail := tbl.Tail(100)
	if tail.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", tail.Len())
	}
	if tail.Rows[0][0].I != 50 {
		t.Errorf("first kept row = %d, want 50", tail.Rows[0][0].I)
	}

	all := tbl.Tail(500)
	if all.Len() != 150 {
		t.Errorf("Tail(500).Len() = %d, want 150", all.Len())
	}
}

func TestTableSortByTimeDesc(t *testing.T) {
	tbl := NewTable("datetime", "title")
	tbl.AppendRow(String("2025-08-20 09:30:00"), String("older"))
	tbl.AppendRow(String("not a date"), String("junk-1"))
	tbl.AppendRow(String("2025-08-22 15:00:00"), String("newest"))
	tbl.AppendRow(String("garbage"), String("junk-2"))
	tbl.AppendRow(String("2025-08-21 10:00:00"), String("middle"))

	tbl.SortByTimeDesc("datetime")

	wantOrder := []string{"newest", "middle", "older", "junk-1", "junk-2"}
	for i, want := range wantOrder {
		if got := tbl.Rows[i][1].S; got != want {
			t.Errorf("row %d = %q, want %q", i, got, want)
		}
	}
}

func TestTimeAt(t *testing.T) {
	tbl := NewTable("t")
	tbl.AppendRow(String("20250821"))
	tbl.AppendRow(Int(1755763200))    // unix seconds
	tbl.AppendRow(Int(1755763200000)) // unix milliseconds
	tbl.AppendRow(String("whenever"))

	if ts, ok := tbl.TimeAt(0, 0); !ok || ts.Format("2006-01-02") != "2025-08-21" {
		t.Errorf("TimeAt(0) = %v, %v", ts, ok)
	}
	sec, okSec := tbl.TimeAt(1, 0)
	ms, okMs := tbl.TimeAt(2, 0)
	if !okSec || !okMs {
		t.Fatalf("unix cells not parsed: %v %v", okSec, okMs)
	}
	if !sec.Equal(time.Unix(1755763200, 0)) || !ms.Equal(time.UnixMilli(1755763200000)) {
		t.Errorf("sec = %v, ms = %v", sec, ms)
	}
	if _, ok := tbl.TimeAt(3, 0); ok {
		t.Errorf("TimeAt parsed junk")
	}
}

func TestRecordsEmptyTableIsNonNil(t *testing.T) {
	tbl := NewTable("a", "b")
	records := tbl.Records()
	if records == nil {
		t.Fatalf("Records() = nil")
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("empty records = %s, want []", data)
	}
}

func TestCellFromJSONNumber(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		kind CellKind
	}{
		{"integral number", json.Number("42"), CellInt},
		{"fractional number", json.Number("3.14"), CellFloat},
		{"overflowing number", json.Number("1e400"), CellString},
		{"nil", nil, CellNull},
		{"bool", true, CellBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellFrom(tt.in); got.Kind != tt.kind {
				t.Errorf("CellFrom(%v).Kind = %d, want %d", tt.in, got.Kind, tt.kind)
			}
		})
	}
}
