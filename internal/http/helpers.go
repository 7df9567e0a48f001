package http

import (
	"errors"
	"net/http"

	"dayplan/internal/core"
	"dayplan/internal/format"
	applog "dayplan/internal/log"

	"github.com/goccy/go-json"
)

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingParameter),
		errors.Is(err, core.ErrInvalidParameter),
		errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrDuplicateUsername),
		errors.Is(err, core.ErrProtectedUser):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrExportUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) format.ErrorBody {
	return format.ErrorBody{Error: msg}
}

// writeError renders err as {"error": "..."} with its mapped status.
// Server-side failures are logged with the operation that produced them.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, op,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeOK acknowledges a write that has no body of its own.
func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
