package http

import (
	"net/http"

	"dayplan/internal/format"
	applog "dayplan/internal/log"
)

// handleDayData serves everything planned and booked on ?date.
func (s *Server) handleDayData(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	data, err := s.planner.DayData(r.Context(), r.URL.Query().Get("date"), userID)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, format.FromDayData(data))
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	todo, err := req.toNewTodo()
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	id, err := s.planner.CreateTodo(r.Context(), todo)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, format.Created{ID: id})
}

func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpToggle, err)
		return
	}
	if err := s.planner.ToggleTodo(r.Context(), id); err != nil {
		writeError(w, r, applog.OpToggle, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.planner.DeleteTodo(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx, err := req.toNewTransaction()
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	id, err := s.planner.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, format.Created{ID: id})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.planner.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeOK(w)
}
