package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/triad-ai/triad/internal/core"
)

// sessionID reads and validates the session path parameter.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.sessions == nil {
		respondError(w, http.StatusServiceUnavailable, "session storage is disabled")
		return "", false
	}
	id := chi.URLParam(r, "sessionID")
	if err := core.ValidateSessionID(id); err != nil {
		respondDomainError(w, err)
		return "", false
	}
	return id, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusServiceUnavailable, "session storage is disabled")
		return
	}
	list, err := s.sessions.ListSessions(r.Context())
	if err != nil {
		s.logger.Error("listing sessions failed", "error", err)
		respondDomainError(w, err)
		return
	}
	if list == nil {
		list = []core.SessionRecord{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	rec, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if rec == nil {
		respondDomainError(w, core.ErrNotFound("session", id))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	rec, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if rec == nil {
		respondDomainError(w, core.ErrNotFound("session", id))
		return
	}
	turns, err := s.sessions.LoadTurns(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if turns == nil {
		turns = []core.TurnRecord{}
	}
	respondJSON(w, http.StatusOK, turns)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
