package format

import (
	"bytes"
	"strings"
	"testing"

	"dayplan/internal/core"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func TestFromDayDataEmptyArrays(t *testing.T) {
	b, err := json.Marshal(FromDayData(core.DayData{Date: "2024-01-01"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"todos":[],"transactions":[]}` {
		t.Fatalf("unexpected body %s", b)
	}
}

func TestFromDayDataFields(t *testing.T) {
	d := core.DayData{
		Todos: []core.Todo{{ID: 3, Text: "run", StartTime: "07:00", EndTime: "07:30", Completed: true}},
		Transactions: []core.Transaction{{
			ID: 9, Type: core.Expense, Category: "food", Description: "lunch",
			Amount: decimal.RequireFromString("12.50"),
		}},
	}
	b, err := json.Marshal(FromDayData(d))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"todos":[{"id":3,"text":"run","start":"07:00","end":"07:30","completed":true}],` +
		`"transactions":[{"id":9,"type":"expense","category":"food","desc":"lunch","amount":12.5}]}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}

func TestFromStatsRowsUsesColumnNames(t *testing.T) {
	rows := FromStatsRows([]core.Transaction{{
		ID: 1, UserID: 4, Type: core.Income, Category: "salary", Description: "march",
		Amount: decimal.NewFromInt(2000), CreatedAt: "2024-03-27",
	}})
	b, _ := json.Marshal(rows)
	for _, key := range []string{`"user_id":4`, `"created_at":"2024-03-27"`, `"description":"march"`, `"amount":2000`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("%s missing %s", b, key)
		}
	}
	if empty, _ := json.Marshal(FromStatsRows(nil)); string(empty) != "[]" {
		t.Fatalf("expected [], got %s", empty)
	}
}

func TestFromCategoryTotals(t *testing.T) {
	out := FromCategoryTotals([]core.CategoryTotal{{
		Type: core.Expense, Category: "food", Total: decimal.NewFromFloat(15.299999999), Count: 2,
	}})
	if len(out) != 1 || out[0].Total != 15.3 || out[0].Count != 2 || out[0].Type != "expense" {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestWriteCSVEmptyRange(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ExportRows(core.ExportData{})); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "\ufeff类型,日期,内容,金额/时间,状态" {
		t.Fatalf("unexpected csv %q", got)
	}
}

func TestWriteCSVRows(t *testing.T) {
	d := core.ExportData{
		Todos: []core.Todo{
			{Text: `say "hi"`, StartTime: "09:00", EndTime: "10:00", CreatedAt: "2024-01-02", Completed: true},
			{Text: "plain", StartTime: "11:00", EndTime: "12:00", CreatedAt: "2024-01-03"},
		},
		Transactions: []core.Transaction{
			{Type: core.Income, Category: "salary", Description: "jan", Amount: decimal.NewFromInt(100), CreatedAt: "2024-01-05"},
			{Type: core.Expense, Category: "food", Description: "a, b", Amount: decimal.RequireFromString("3.5"), CreatedAt: "2024-01-06"},
		},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ExportRows(d)); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimPrefix(buf.String(), "\ufeff"), "\n")
	want := []string{
		"类型,日期,内容,金额/时间,状态",
		`计划,2024-01-02,"say ""hi""","09:00-10:00",已完成`,
		`计划,2024-01-03,"plain","11:00-12:00",未完成`,
		`收入,2024-01-05,"salary: jan",¥100.00,--`,
		`支出,2024-01-06,"food: a, b",¥3.50,--`,
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestSheetValues(t *testing.T) {
	values := SheetValues(ExportRows(core.ExportData{
		Todos: []core.Todo{{Text: "x", StartTime: "01:00", EndTime: "02:00", CreatedAt: "2024-01-01"}},
	}))
	if len(values) != 2 || values[0][0] != "类型" || values[1][3] != "01:00-02:00" {
		t.Fatalf("unexpected values %v", values)
	}
}

func TestExportFilename(t *testing.T) {
	cases := []struct{ start, end, want string }{
		{"2024-01-01", "2024-01-31", "dayplan_2024-01-01_2024-01-31.csv"},
		{"2024/01/01\"", "../x", "dayplan_20240101_x.csv"},
	}
	for _, tc := range cases {
		if got := ExportFilename(tc.start, tc.end); got != tc.want {
			t.Fatalf("ExportFilename(%q, %q) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}
}
