package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avrebrov/store-api/internal/domain"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	products, err := s.products.List(r.Context(), page)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")

	p, st, err := s.products.GetWithStats(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	lookupHeaders(w, st)
	writeJSON(w, http.StatusOK, p)
}
