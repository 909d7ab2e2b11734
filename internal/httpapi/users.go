package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avrebrov/store-api/internal/domain"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	q := r.URL.Query()
	filter := domain.UserFilter{
		Page:        page,
		Username:    q.Get("username"),
		Email:       q.Get("email"),
		Description: q.Get("description"),
	}

	users, err := s.users.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserCreate
	if !decodeBody(w, r, &in) {
		return
	}

	u, err := s.users.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "user_id")

	u, st, err := s.users.GetWithStats(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	lookupHeaders(w, st)
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "user_id")

	var upd domain.UserUpdate
	if !decodeBody(w, r, &upd) {
		return
	}

	u, err := s.users.Update(r.Context(), id, upd)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// deleteUser is idempotent: deleting an already absent user is still a 204.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "user_id")

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
