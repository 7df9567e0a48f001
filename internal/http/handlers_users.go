package http

import (
	"net/http"

	"dayplan/internal/format"
	applog "dayplan/internal/log"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.planner.Users(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, format.FromUsers(users))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	user, err := s.planner.CreateUser(r.Context(), req.Username)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, format.FromCreatedUser(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.planner.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeOK(w)
}
