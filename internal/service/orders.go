package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avrebrov/store-api/internal/cache"
	"github.com/avrebrov/store-api/internal/domain"
	"github.com/avrebrov/store-api/internal/observability"
)

// OrderService serves reads over HTTP and applies mutations arriving on the
// order queue. Creating an order also touches product stock, so its
// invalidation covers the affected products as well.
type OrderService struct {
	repo    domain.OrderRepository
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewOrderService(repo domain.OrderRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger, metrics observability.Metrics) *OrderService {
	return &OrderService{
		repo:    repo,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, _, err := s.GetWithStats(ctx, id)
	return o, err
}

func (s *OrderService) GetWithStats(ctx context.Context, id string) (*domain.Order, LookupStats, error) {
	key := cache.OrderKey(id)

	tCache := time.Now()
	if o, ok := cacheGet[domain.Order](ctx, s.cache, key); ok {
		st := LookupStats{Source: SourceCache, CacheMs: convertToMs(tCache)}
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup("order", string(st.Source), st.CacheMs, 0)
		s.logger.Debug("order fetched from cache", zap.String("order_id", id))
		return &o, st, nil
	}
	s.metrics.IncCacheMiss()
	cacheMs := convertToMs(tCache)

	tDB := time.Now()
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, LookupStats{Source: SourceDB, CacheMs: cacheMs}, err
	}
	st := LookupStats{Source: SourceDB, CacheMs: cacheMs, DBMs: convertToMs(tDB)}
	s.metrics.ObserveLookup("order", string(st.Source), st.CacheMs, st.DBMs)
	cacheSet(ctx, s.cache, key, o, s.ttl)
	s.logger.Debug("order fetched from db", zap.String("order_id", id))
	return o, st, nil
}

func (s *OrderService) List(ctx context.Context, page domain.Page) ([]domain.Order, error) {
	key := cache.OrderListKey(page)

	tCache := time.Now()
	if orders, ok := cacheGet[[]domain.Order](ctx, s.cache, key); ok {
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup("order", string(SourceCache), convertToMs(tCache), 0)
		return orders, nil
	}
	s.metrics.IncCacheMiss()
	cacheMs := convertToMs(tCache)

	tDB := time.Now()
	orders, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLookup("order", string(SourceDB), cacheMs, convertToMs(tDB))
	cacheSet(ctx, s.cache, key, orders, s.ttl)
	return orders, nil
}

func (s *OrderService) Create(ctx context.Context, in domain.OrderCreate) (*domain.Order, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	o := &domain.Order{
		UserID:            in.UserID,
		DeliveryAddressID: in.DeliveryAddressID,
		Items:             make([]domain.OrderItem, 0, len(in.Items)),
	}
	for _, it := range in.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	t0 := time.Now()
	if err := s.repo.Create(ctx, o); err != nil {
		s.logger.Error("order create failed", zap.String("user_id", in.UserID), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveMutation("order", "create", convertToMs(t0))

	// The transaction also decremented product stock, so their cached
	// views are stale too.
	s.invalidate(ctx, "")
	s.invalidateProducts(ctx, o.Items)

	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
	)
	return o, nil
}

func (s *OrderService) Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error) {
	if err := domain.Validate(upd); err != nil {
		return nil, err
	}

	t0 := time.Now()
	o, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation("order", "update", convertToMs(t0))
	s.invalidate(ctx, id)

	s.logger.Info("order updated", zap.String("order_id", id))
	return o, nil
}

func (s *OrderService) invalidate(ctx context.Context, id string) {
	if id != "" {
		s.cache.Delete(ctx, cache.OrderKey(id))
	}
	s.cache.DeletePrefix(ctx, cache.OrderListScope)
}

func (s *OrderService) invalidateProducts(ctx context.Context, items []domain.OrderItem) {
	if len(items) == 0 {
		return
	}
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, cache.ProductKey(it.ProductID))
	}
	s.cache.Delete(ctx, keys...)
	s.cache.DeletePrefix(ctx, cache.ProductListScope)
}
