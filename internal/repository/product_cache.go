package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shopflow/internal/model"
	"shopflow/pkg/log"
)

// cachedProductRepository caches product reads in Redis. Writes go through
// to the inner repository and invalidate the cached entry, so checkout always
// decrements against the database while lookups stay cheap.
type cachedProductRepository struct {
	inner ProductRepository
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedProductRepository wraps a product repository with a Redis read cache
func NewCachedProductRepository(inner ProductRepository, rdb *redis.Client, ttl time.Duration) ProductRepository {
	return &cachedProductRepository{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func productCacheKey(id uint64) string {
	return fmt.Sprintf("product:%d", id)
}

func (r *cachedProductRepository) Create(ctx context.Context, product *model.Product) error {
	return r.inner.Create(ctx, product)
}

func (r *cachedProductRepository) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	key := productCacheKey(id)

	if data, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
		var product model.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
	}

	product, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
			log.WithError(err).Debug("Failed to cache product")
		}
	}

	return product, nil
}

func (r *cachedProductRepository) List(ctx context.Context) ([]*model.Product, error) {
	return r.inner.List(ctx)
}

func (r *cachedProductRepository) Update(ctx context.Context, product *model.Product) error {
	if err := r.inner.Update(ctx, product); err != nil {
		return err
	}
	r.invalidate(ctx, product.ID)
	return nil
}

func (r *cachedProductRepository) Delete(ctx context.Context, id uint64) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedProductRepository) DecrStock(ctx context.Context, tx *gorm.DB, id uint64, qty int) error {
	if err := r.inner.DecrStock(ctx, tx, id, qty); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedProductRepository) invalidate(ctx context.Context, id uint64) {
	if err := r.rdb.Del(ctx, productCacheKey(id)).Err(); err != nil {
		log.WithError(err).Debug("Failed to invalidate product cache")
	}
}
