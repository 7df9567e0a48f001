package format

import (
	"io"
	"regexp"
	"strings"

	"dayplan/internal/core"
)

// utf8BOM lets spreadsheet tools detect the encoding of the CSV download.
const utf8BOM = "\ufeff"

const (
	kindTodo    = "计划"
	kindIncome  = "收入"
	kindExpense = "支出"
	statusDone  = "已完成"
	statusOpen  = "未完成"
	statusNone  = "--"
)

// ExportHeader is the first line of every export.
var ExportHeader = []string{"类型", "日期", "内容", "金额/时间", "状态"}

// ExportRow is one line of an export: todos first, then transactions.
type ExportRow struct {
	Kind    string
	Date    string
	Content string
	Detail  string // "start-end" for todos, "¥amount" for transactions
	Status  string

	quoteDetail bool
}

// Values returns the row cells in header order.
func (r ExportRow) Values() []string {
	return []string{r.Kind, r.Date, r.Content, r.Detail, r.Status}
}

// ExportRows builds the rows for a date range. The result is never nil.
func ExportRows(d core.ExportData) []ExportRow {
	rows := make([]ExportRow, 0, len(d.Todos)+len(d.Transactions))
	for _, t := range d.Todos {
		status := statusOpen
		if t.Completed {
			status = statusDone
		}
		rows = append(rows, ExportRow{
			Kind:        kindTodo,
			Date:        t.CreatedAt,
			Content:     t.Text,
			Detail:      t.StartTime + "-" + t.EndTime,
			Status:      status,
			quoteDetail: true,
		})
	}
	for _, t := range d.Transactions {
		kind := kindExpense
		if t.Type == core.Income {
			kind = kindIncome
		}
		rows = append(rows, ExportRow{
			Kind:    kind,
			Date:    t.CreatedAt,
			Content: t.Category + ": " + t.Description,
			Detail:  "¥" + core.AmountString(t.Amount),
			Status:  statusNone,
		})
	}
	return rows
}

// SheetValues lays out the header and rows for a spreadsheet range update.
func SheetValues(rows []ExportRow) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toCells(ExportHeader))
	for _, r := range rows {
		values = append(values, toCells(r.Values()))
	}
	return values
}

func toCells(s []string) []interface{} {
	cells := make([]interface{}, len(s))
	for i, v := range s {
		cells[i] = v
	}
	return cells
}

// WriteCSV writes the BOM, the header and one line per row, separated by
// newlines. Content is always quoted, as is a todo's time range.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(strings.Join(ExportHeader, ","))
	for _, r := range rows {
		b.WriteByte('\n')
		b.WriteString(csvField(r.Kind, false))
		b.WriteByte(',')
		b.WriteString(csvField(r.Date, false))
		b.WriteByte(',')
		b.WriteString(csvField(r.Content, true))
		b.WriteByte(',')
		b.WriteString(csvField(r.Detail, r.quoteDetail))
		b.WriteByte(',')
		b.WriteString(csvField(r.Status, false))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func csvField(s string, force bool) string {
	if !force && !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^0-9A-Za-z-]`)

// ExportFilename names the CSV attachment after the requested range.
func ExportFilename(start, end string) string {
	return "dayplan_" + unsafeFilenameChars.ReplaceAllString(start, "") +
		"_" + unsafeFilenameChars.ReplaceAllString(end, "") + ".csv"
}
