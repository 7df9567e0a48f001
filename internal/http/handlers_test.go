package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"dayplan/internal/format"
	"dayplan/internal/services"

	"github.com/brianvoe/gofakeit/v6"
)

func TestUsersEndpoints(t *testing.T) {
	ts := newTestServer(t, 0)
	name := gofakeit.Username()

	rr := ts.do(t, http.MethodGet, "/api/users", "")
	users := decodeBody[[]format.User](t, rr)
	if rr.Code != http.StatusOK || len(users) != 1 || users[0].ID != 1 {
		t.Fatalf("initial users: status=%d users=%+v", rr.Code, users)
	}

	rr = ts.do(t, http.MethodPost, "/api/users", fmt.Sprintf(`{"username":"  %s "}`, name))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeBody[format.CreatedUser](t, rr)
	if created.Username != name || created.ID < 2 {
		t.Fatalf("created user = %+v", created)
	}

	for _, body := range []string{`{"username":"   "}`, `{}`, fmt.Sprintf(`{"username":%q}`, name), `{"username":`} {
		rr := ts.do(t, http.MethodPost, "/api/users", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("POST %s: status=%d", body, rr.Code)
		}
		if decodeBody[format.ErrorBody](t, rr).Error == "" {
			t.Errorf("POST %s: missing error message", body)
		}
	}

	if rr := ts.do(t, http.MethodDelete, "/api/users/1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("deleting the default user: status=%d", rr.Code)
	}
	if rr := ts.do(t, http.MethodDelete, "/api/users/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", created.ID), "")
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("delete: status=%d body=%q", rr.Code, rr.Body.String())
	}
	if users := decodeBody[[]format.User](t, ts.do(t, http.MethodGet, "/api/users", "")); len(users) != 1 {
		t.Fatalf("only the default user should remain, got %+v", users)
	}
}

func TestDayDataEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)

	todos := []string{
		`{"text":"lunch","start":"12:00","end":"13:00","date":"2024-03-05"}`,
		`{"text":"gym","start":"07:00","end":"08:00","date":"2024-03-05","userId":"1"}`,
		`{"text":"other day","start":"09:00","end":"10:00","date":"2024-03-06"}`,
		`{"text":"other user","start":"06:00","end":"07:00","date":"2024-03-05","userId":2}`,
	}
	for _, body := range todos {
		if rr := ts.do(t, http.MethodPost, "/api/todos", body); rr.Code != http.StatusOK {
			t.Fatalf("create todo %s: status=%d body=%s", body, rr.Code, rr.Body.String())
		}
	}
	rr := ts.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","category":"food","desc":"groceries","amount":"12.50","date":"2024-03-05","userId":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create transaction: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if decodeBody[format.Created](t, rr).ID < 1 {
		t.Fatal("transaction id missing")
	}

	rr = ts.do(t, http.MethodGet, "/api/data?date=2024-03-05", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("day data: status=%d", rr.Code)
	}
	day := decodeBody[format.DayData](t, rr)
	if len(day.Todos) != 2 || day.Todos[0].Text != "gym" || day.Todos[1].Text != "lunch" {
		t.Fatalf("todos should be the user's, sorted by start: %+v", day.Todos)
	}
	if len(day.Transactions) != 1 || day.Transactions[0].Amount != 12.5 || day.Transactions[0].Desc != "groceries" {
		t.Fatalf("unexpected transactions: %+v", day.Transactions)
	}

	rr = ts.do(t, http.MethodGet, "/api/data?date=1999-01-01&userId=1", "")
	if !strings.Contains(rr.Body.String(), `"todos":[]`) || !strings.Contains(rr.Body.String(), `"transactions":[]`) {
		t.Errorf("empty day should serialize empty arrays, got %s", rr.Body.String())
	}

	if rr := ts.do(t, http.MethodGet, "/api/data", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("missing date: status=%d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/api/data?date=2024-03-05&userId=bob", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric userId: status=%d", rr.Code)
	}
}

func TestToggleAndDeleteTodo(t *testing.T) {
	ts := newTestServer(t, 0)
	id := decodeBody[format.Created](t, ts.do(t, http.MethodPost, "/api/todos",
		`{"text":"read","start":"20:00","end":"21:00","date":"2024-05-01"}`)).ID

	completed := func() bool {
		day := decodeBody[format.DayData](t, ts.do(t, http.MethodGet, "/api/data?date=2024-05-01", ""))
		if len(day.Todos) != 1 {
			t.Fatalf("expected one todo, got %+v", day.Todos)
		}
		return day.Todos[0].Completed
	}

	toggle := fmt.Sprintf("/api/todos/%d/toggle", id)
	if rr := ts.do(t, http.MethodPut, toggle, ""); rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("toggle: status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !completed() {
		t.Fatal("todo should be completed after one toggle")
	}
	ts.do(t, http.MethodPut, toggle, "")
	if completed() {
		t.Fatal("two toggles should restore the original state")
	}

	if rr := ts.do(t, http.MethodPut, "/api/todos/9999/toggle", ""); rr.Code != http.StatusOK {
		t.Errorf("toggle unknown id: status=%d", rr.Code)
	}
	if rr := ts.do(t, http.MethodPut, "/api/todos/x/toggle", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("toggle bad id: status=%d", rr.Code)
	}

	for i := 0; i < 2; i++ {
		if rr := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/todos/%d", id), ""); rr.Code != http.StatusOK {
			t.Fatalf("delete #%d: status=%d", i+1, rr.Code)
		}
	}
	day := decodeBody[format.DayData](t, ts.do(t, http.MethodGet, "/api/data?date=2024-05-01", ""))
	if len(day.Todos) != 0 {
		t.Fatalf("todo should be gone, got %+v", day.Todos)
	}
}

func TestCreateTodoWithoutTextFailsInStore(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, body := range []string{
		`{"start":"08:00","end":"09:00","date":"2024-03-05"}`,
		`{"text":null,"start":"08:00","end":"09:00","date":"2024-03-05"}`,
	} {
		rr := ts.do(t, http.MethodPost, "/api/todos", body)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status=%d body=%s", body, rr.Code, rr.Body.String())
		}
		if decodeBody[format.ErrorBody](t, rr).Error == "" {
			t.Fatalf("%s: store error text should be returned", body)
		}
	}

	if rr := ts.do(t, http.MethodPost, "/api/todos", `{"text":"","start":"08:00","end":"09:00","date":"2024-03-05"}`); rr.Code != http.StatusOK {
		t.Fatalf("empty text is still a value: status=%d", rr.Code)
	}
	day := decodeBody[format.DayData](t, ts.do(t, http.MethodGet, "/api/data?date=2024-03-05", ""))
	if len(day.Todos) != 1 {
		t.Fatalf("only the todo with text should be stored, got %+v", day.Todos)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	ts := newTestServer(t, 0)

	t.Run("numeric amount is rounded", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/transactions",
			`{"type":"income","category":"gift","desc":"birthday","amount":20.456,"date":"2024-06-01"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		day := decodeBody[format.DayData](t, ts.do(t, http.MethodGet, "/api/data?date=2024-06-01", ""))
		if len(day.Transactions) != 1 || day.Transactions[0].Amount != 20.46 {
			t.Fatalf("unexpected transactions %+v", day.Transactions)
		}

		id := day.Transactions[0].ID
		if rr := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", id), ""); rr.Code != http.StatusOK {
			t.Fatalf("delete: status=%d", rr.Code)
		}
	})

	t.Run("malformed amount", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/transactions",
			`{"type":"expense","category":"food","desc":"x","amount":"lots","date":"2024-06-01"}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status=%d", rr.Code)
		}
	})

	t.Run("missing amount fails in the store", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/transactions",
			`{"type":"expense","category":"food","desc":"x","date":"2024-06-01"}`)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d", rr.Code)
		}
		if decodeBody[format.ErrorBody](t, rr).Error == "" {
			t.Fatal("store error text should be returned")
		}
	})
}

func seedTransactions(t *testing.T, ts *testServer) {
	t.Helper()
	rows := []struct {
		typ, category, amount, date string
	}{
		{"expense", "food", "10.00", "2024-03-01"},
		{"expense", "food", "5.30", "2024-03-15"},
		{"expense", "rent", "500", "2024-03-01"},
		{"income", "salary", "2000", "2024-03-27"},
		{"expense", "food", "7", "2024-04-02"},
		{"expense", "food", "99", "2023-03-02"},
	}
	for _, r := range rows {
		body := fmt.Sprintf(`{"type":%q,"category":%q,"desc":%q,"amount":%q,"date":%q}`,
			r.typ, r.category, gofakeit.Sentence(3), r.amount, r.date)
		if rr := ts.do(t, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusOK {
			t.Fatalf("seed %s: status=%d body=%s", body, rr.Code, rr.Body.String())
		}
	}
}

func TestStatsEndpoints(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	seedTransactions(t, ts)

	t.Run("year defaults to now", func(t *testing.T) {
		rows := decodeBody[[]format.StatsRow](t, ts.do(t, http.MethodGet, "/api/stats", ""))
		if len(rows) != 5 {
			t.Fatalf("expected 5 rows in 2024, got %d", len(rows))
		}
		for _, r := range rows {
			if !strings.HasPrefix(r.CreatedAt, "2024") || r.UserID != 1 {
				t.Errorf("unexpected row %+v", r)
			}
		}
	})

	t.Run("explicit year", func(t *testing.T) {
		rows := decodeBody[[]format.StatsRow](t, ts.do(t, http.MethodGet, "/api/stats?year=2023", ""))
		if len(rows) != 1 || rows[0].Amount != 99 {
			t.Fatalf("unexpected 2023 rows %+v", rows)
		}
	})

	t.Run("month totals", func(t *testing.T) {
		rr := ts.do(t, http.MethodGet, "/api/category-stats?year=2024&month=03", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		got := decodeBody[[]format.CategoryStat](t, rr)
		want := []format.CategoryStat{
			{Type: "expense", Category: "rent", Total: 500, Count: 1},
			{Type: "expense", Category: "food", Total: 15.3, Count: 2},
			{Type: "income", Category: "salary", Total: 2000, Count: 1},
		}
		if len(got) != len(want) {
			t.Fatalf("got %+v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("whole year when month is absent", func(t *testing.T) {
		got := decodeBody[[]format.CategoryStat](t, ts.do(t, http.MethodGet, "/api/category-stats?year=2024", ""))
		for _, c := range got {
			if c.Category == "food" && (c.Count != 3 || c.Total != 22.3) {
				t.Errorf("food for the year = %+v", c)
			}
		}
	})

	t.Run("short year is used as given", func(t *testing.T) {
		body := `{"type":"expense","category":"old","desc":"x","amount":"1","date":"24-01-01"}`
		if rr := ts.do(t, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusOK {
			t.Fatalf("seed: status=%d", rr.Code)
		}
		rows := decodeBody[[]format.StatsRow](t, ts.do(t, http.MethodGet, "/api/stats?year=24", ""))
		if len(rows) != 1 || rows[0].CreatedAt != "24-01-01" {
			t.Fatalf("unexpected rows for year 24: %+v", rows)
		}
	})

	t.Run("bad parameters", func(t *testing.T) {
		for _, q := range []string{"month=13", "month=0", "month=may", "year=abc"} {
			if rr := ts.do(t, http.MethodGet, "/api/category-stats?"+q, ""); rr.Code != http.StatusBadRequest {
				t.Errorf("%s: status=%d", q, rr.Code)
			}
		}
	})
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(t, http.MethodGet, "/api/export?startDate=2024-01-01&endDate=2024-01-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="dayplan_2024-01-01_2024-01-31.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if want := "\ufeff" + strings.Join(format.ExportHeader, ","); rr.Body.String() != want {
		t.Errorf("empty export = %q, want %q", rr.Body.String(), want)
	}

	ts.do(t, http.MethodPost, "/api/todos", `{"text":"Buy milk","start":"08:00","end":"09:00","date":"2024-01-10"}`)
	ts.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","category":"food","desc":"milk","amount":"2.5","date":"2024-01-10"}`)

	body := ts.do(t, http.MethodGet, "/api/export?startDate=2024-01-01&endDate=2024-01-31", "").Body.String()
	lines := strings.Split(body, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", body)
	}
	if lines[1] != `计划,2024-01-10,"Buy milk","08:00-09:00",未完成` {
		t.Errorf("todo line = %q", lines[1])
	}
	if lines[2] != `支出,2024-01-10,"food: milk",¥2.50,--` {
		t.Errorf("transaction line = %q", lines[2])
	}

	for _, q := range []string{"startDate=2024-01-01", "endDate=2024-01-31", ""} {
		if rr := ts.do(t, http.MethodGet, "/api/export?"+q, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%q: status=%d", q, rr.Code)
		}
	}
}

type stubExporter struct {
	values [][]interface{}
	err    error
}

func (s *stubExporter) WriteExport(ctx context.Context, values [][]interface{}) (string, error) {
	s.values = values
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("Export!A1:E%d", len(values)), nil
}

func TestExportSheets(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, 0)
		rr := ts.do(t, http.MethodPost, "/api/export/sheets?startDate=2024-01-01&endDate=2024-01-31", "")
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("status=%d", rr.Code)
		}
	})

	t.Run("writes rows", func(t *testing.T) {
		exp := &stubExporter{}
		ts := newTestServer(t, 0, services.WithExporter(exp))
		ts.do(t, http.MethodPost, "/api/todos", `{"text":"plan","start":"08:00","end":"09:00","date":"2024-01-10"}`)

		rr := ts.do(t, http.MethodPost, "/api/export/sheets?startDate=2024-01-01&endDate=2024-01-31", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		got := decodeBody[format.SheetExport](t, rr)
		if got.Rows != 1 || got.Range != "Export!A1:E2" {
			t.Fatalf("unexpected result %+v", got)
		}
		if len(exp.values) != 2 || exp.values[1][2] != "plan" {
			t.Fatalf("unexpected sheet values %v", exp.values)
		}
	})

	t.Run("exporter failure", func(t *testing.T) {
		ts := newTestServer(t, 0, services.WithExporter(&stubExporter{err: errors.New("quota exceeded")}))
		rr := ts.do(t, http.MethodPost, "/api/export/sheets?startDate=2024-01-01&endDate=2024-01-31", "")
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d", rr.Code)
		}
		if !strings.Contains(decodeBody[format.ErrorBody](t, rr).Error, "quota exceeded") {
			t.Errorf("error body = %s", rr.Body.String())
		}
	})
}
