// Package httpapi exposes the read side of the store plus user management.
// Orders and products are mutated through the queues only, so their routes
// are read-only here.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/avrebrov/store-api/internal/domain"
	"github.com/avrebrov/store-api/internal/observability"
	"github.com/avrebrov/store-api/internal/service"
)

//go:generate mockgen -source=httpapi.go -destination=httpapi_mock_test.go -package=httpapi

type UserService interface {
	GetWithStats(ctx context.Context, id string) (*domain.User, service.LookupStats, error)
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	Create(ctx context.Context, in domain.UserCreate) (*domain.User, error)
	Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type OrderService interface {
	GetWithStats(ctx context.Context, id string) (*domain.Order, service.LookupStats, error)
	List(ctx context.Context, page domain.Page) ([]domain.Order, error)
}

type ProductService interface {
	GetWithStats(ctx context.Context, id string) (*domain.Product, service.LookupStats, error)
	List(ctx context.Context, page domain.Page) ([]domain.Product, error)
}

// Snapshotter feeds the debug endpoint; the in-memory metrics ring
// implements it.
type Snapshotter interface {
	Snapshot() observability.Snapshot
}

type Server struct {
	users    UserService
	orders   OrderService
	products ProductService
	snap     Snapshotter
	router   chi.Router
	logger   *zap.Logger
	metrics  observability.Metrics
}

func New(users UserService, orders OrderService, products ProductService, snap Snapshotter, logger *zap.Logger, metrics observability.Metrics) *Server {
	s := &Server{
		users:    users,
		orders:   orders,
		products: products,
		snap:     snap,
		logger:   logger,
		metrics:  metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		RequestLogger(s.logger),
		chimw.Recoverer,
		Metrics(s.metrics),
	)

	r.Get("/users", s.listUsers)
	r.Post("/users", s.createUser)
	r.Get("/users/{user_id}", s.getUser)
	r.Put("/users/{user_id}", s.updateUser)
	r.Delete("/users/{user_id}", s.deleteUser)

	r.Get("/orders", s.listOrders)
	r.Get("/orders/{order_id}", s.getOrder)

	r.Get("/products", s.listProducts)
	r.Get("/products/{product_id}", s.getProduct)

	r.Get("/healthz", s.healthz)
	if s.snap != nil {
		r.Get("/debug/metrics", s.debugMetrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) debugMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snap.Snapshot())
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}
