package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avrebrov/store-api/internal/cache"
	"github.com/avrebrov/store-api/internal/domain"
	"github.com/avrebrov/store-api/internal/observability"
	"github.com/avrebrov/store-api/internal/pkg/pool"
)

// ProductService serves reads over HTTP and applies mutations arriving on
// the product queue.
type ProductService struct {
	repo    domain.ProductRepository
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewProductService(repo domain.ProductRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger, metrics observability.Metrics) *ProductService {
	return &ProductService{
		repo:    repo,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, _, err := s.GetWithStats(ctx, id)
	return p, err
}

func (s *ProductService) GetWithStats(ctx context.Context, id string) (*domain.Product, LookupStats, error) {
	key := cache.ProductKey(id)

	tCache := time.Now()
	if p, ok := cacheGet[domain.Product](ctx, s.cache, key); ok {
		st := LookupStats{Source: SourceCache, CacheMs: convertToMs(tCache)}
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup("product", string(st.Source), st.CacheMs, 0)
		s.logger.Debug("product fetched from cache", zap.String("product_id", id))
		return &p, st, nil
	}
	s.metrics.IncCacheMiss()
	cacheMs := convertToMs(tCache)

	tDB := time.Now()
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, LookupStats{Source: SourceDB, CacheMs: cacheMs}, err
	}
	st := LookupStats{Source: SourceDB, CacheMs: cacheMs, DBMs: convertToMs(tDB)}
	s.metrics.ObserveLookup("product", string(st.Source), st.CacheMs, st.DBMs)
	cacheSet(ctx, s.cache, key, p, s.ttl)
	s.logger.Debug("product fetched from db", zap.String("product_id", id))
	return p, st, nil
}

func (s *ProductService) List(ctx context.Context, page domain.Page) ([]domain.Product, error) {
	key := cache.ProductListKey(page)

	tCache := time.Now()
	if products, ok := cacheGet[[]domain.Product](ctx, s.cache, key); ok {
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup("product", string(SourceCache), convertToMs(tCache), 0)
		return products, nil
	}
	s.metrics.IncCacheMiss()
	cacheMs := convertToMs(tCache)

	tDB := time.Now()
	products, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLookup("product", string(SourceDB), cacheMs, convertToMs(tDB))
	cacheSet(ctx, s.cache, key, products, s.ttl)
	return products, nil
}

func (s *ProductService) Create(ctx context.Context, in domain.ProductCreate) (*domain.Product, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         *in.Price,
		StockQuantity: in.StockQuantity,
	}

	t0 := time.Now()
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("product create failed", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveMutation("product", "create", convertToMs(t0))
	s.invalidate(ctx, "")

	s.logger.Info("product created", zap.String("product_id", p.ID))
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	if err := domain.Validate(upd); err != nil {
		return nil, err
	}

	t0 := time.Now()
	p, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation("product", "update", convertToMs(t0))
	s.invalidate(ctx, id)

	s.logger.Info("product updated", zap.String("product_id", id))
	return p, nil
}

// MarkOutOfStock zeroes the stock; readers observe it as out of stock as
// soon as the invalidation below lands.
func (s *ProductService) MarkOutOfStock(ctx context.Context, id string) (*domain.Product, error) {
	zero := 0

	t0 := time.Now()
	p, err := s.repo.Update(ctx, id, domain.ProductUpdate{StockQuantity: &zero})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation("product", "mark_out_of_stock", convertToMs(t0))
	s.invalidate(ctx, id)

	s.logger.Info("product marked out of stock", zap.String("product_id", id))
	return p, nil
}

// Warm pre-loads the most recent products through the read-through path.
func (s *ProductService) Warm(ctx context.Context, n int, workers *pool.Pool) {
	ids, err := s.repo.RecentIDs(ctx, n)
	if err != nil {
		s.logger.Warn("product cache warm-up skipped", zap.Error(err))
		return
	}
	for _, id := range ids {
		id := id
		workers.Submit(func() {
			if _, err := s.Get(ctx, id); err != nil {
				s.logger.Debug("product warm-up load failed", zap.String("product_id", id), zap.Error(err))
			}
		})
	}
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	if id != "" {
		s.cache.Delete(ctx, cache.ProductKey(id))
	}
	s.cache.DeletePrefix(ctx, cache.ProductListScope)
}
