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

// UserService fronts the user repository with a read-through cache.
// Mutations invalidate the detail key and every user list key once the
// repository write has completed.
type UserService struct {
	repo    domain.UserRepository
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewUserService(repo domain.UserRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger, metrics observability.Metrics) *UserService {
	return &UserService{
		repo:    repo,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, _, err := s.GetWithStats(ctx, id)
	return u, err
}

// GetWithStats is the read-through get plus where-served-from timing for
// the HTTP layer's response headers.
func (s *UserService) GetWithStats(ctx context.Context, id string) (*domain.User, LookupStats, error) {
	key := cache.UserKey(id)

	tCache := time.Now()
	if u, ok := cacheGet[domain.User](ctx, s.cache, key); ok {
		st := LookupStats{Source: SourceCache, CacheMs: convertToMs(tCache)}
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup("user", string(st.Source), st.CacheMs, 0)
		s.logger.Debug("user fetched from cache", zap.String("user_id", id))
		return &u, st, nil
	}
	s.metrics.IncCacheMiss()
	cacheMs := convertToMs(tCache)

	tDB := time.Now()
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, LookupStats{Source: SourceDB, CacheMs: cacheMs}, err
	}
	st := LookupStats{Source: SourceDB, CacheMs: cacheMs, DBMs: convertToMs(tDB)}
	s.metrics.ObserveLookup("user", string(st.Source), st.CacheMs, st.DBMs)
	cacheSet(ctx, s.cache, key, u, s.ttl)
	s.logger.Debug("user fetched from db", zap.String("user_id", id))
	return u, st, nil
}

func (s *UserService) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	key := cache.UserListKey(filter)

	tCache := time.Now()
	if users, ok := cacheGet[[]domain.User](ctx, s.cache, key); ok {
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup("user", string(SourceCache), convertToMs(tCache), 0)
		return users, nil
	}
	s.metrics.IncCacheMiss()
	cacheMs := convertToMs(tCache)

	tDB := time.Now()
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLookup("user", string(SourceDB), cacheMs, convertToMs(tDB))
	cacheSet(ctx, s.cache, key, users, s.ttl)
	return users, nil
}

func (s *UserService) Create(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	u := &domain.User{
		Username:    in.Username,
		Email:       in.Email,
		Description: in.Description,
	}

	t0 := time.Now()
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("user create failed", zap.String("username", in.Username), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveMutation("user", "create", convertToMs(t0))
	s.invalidate(ctx, "")

	s.logger.Info("user created", zap.String("user_id", u.ID))
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	if err := domain.Validate(upd); err != nil {
		return nil, err
	}

	t0 := time.Now()
	u, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation("user", "update", convertToMs(t0))
	s.invalidate(ctx, id)

	s.logger.Info("user updated", zap.String("user_id", id))
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	t0 := time.Now()
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.ObserveMutation("user", "delete", convertToMs(t0))
	s.invalidate(ctx, id)

	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// Warm pre-loads the most recent users through the read-through path.
func (s *UserService) Warm(ctx context.Context, n int, workers *pool.Pool) {
	ids, err := s.repo.RecentIDs(ctx, n)
	if err != nil {
		s.logger.Warn("user cache warm-up skipped", zap.Error(err))
		return
	}
	for _, id := range ids {
		id := id
		workers.Submit(func() {
			if _, err := s.Get(ctx, id); err != nil {
				s.logger.Debug("user warm-up load failed", zap.String("user_id", id), zap.Error(err))
			}
		})
	}
}

// invalidate runs after the repository write. An empty id drops only the
// list keys (creates have nothing cached under the detail key yet).
func (s *UserService) invalidate(ctx context.Context, id string) {
	if id != "" {
		s.cache.Delete(ctx, cache.UserKey(id))
	}
	s.cache.DeletePrefix(ctx, cache.UserListScope)
}
