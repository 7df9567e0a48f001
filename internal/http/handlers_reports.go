package http

import (
	"bytes"
	"net/http"
	"strconv"

	"dayplan/internal/format"
	applog "dayplan/internal/log"
)

func (s *Server) handleYearStats(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	year, err := queryYear(r, s.now().Year())
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	rows, err := s.planner.YearStats(r.Context(), year, userID)
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	writeJSON(w, http.StatusOK, format.FromStatsRows(rows))
}

func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	year, err := queryYear(r, s.now().Year())
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	month, err := queryMonth(r)
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	totals, err := s.planner.CategoryStats(r.Context(), year, month, userID)
	if err != nil {
		writeError(w, r, applog.OpStats, err)
		return
	}
	writeJSON(w, http.StatusOK, format.FromCategoryTotals(totals))
}

// handleExportCSV streams the range as a CSV attachment. The body is built
// before any header is sent so that a failure can still become a JSON error.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	q := r.URL.Query()
	start, end := q.Get("startDate"), q.Get("endDate")

	data, err := s.planner.Export(r.Context(), start, end, userID)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := format.WriteCSV(&buf, format.ExportRows(data)); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.ExportFilename(start, end)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	q := r.URL.Query()
	rng, rows, err := s.planner.ExportToSheet(r.Context(), q.Get("startDate"), q.Get("endDate"), userID)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Range exported to spreadsheet",
		"range", rng, "rows", rows, applog.FieldUserID, userID)
	writeJSON(w, http.StatusOK, format.SheetExport{Range: rng, Rows: rows})
}
