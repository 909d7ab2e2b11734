package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avrebrov/store-api/internal/domain"
)

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	orders, err := s.orders.List(r.Context(), page)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")

	o, st, err := s.orders.GetWithStats(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	lookupHeaders(w, st)
	writeJSON(w, http.StatusOK, o)
}
