package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/shop_backend/internal/domain"
)

// RedisCache caches per-product review pages and rating aggregates. Every
// key written for a product is tracked in a per-product SET so a review
// mutation can drop all of them at once.
type RedisCache struct {
	client           *redis.Client
	productRatingTTL time.Duration
	reviewsListTTL   time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, productRatingTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:           client,
		productRatingTTL: productRatingTTL,
		reviewsListTTL:   reviewsListTTL,
	}
}

// ratingAggregate is the cached form of a product's review aggregate
type ratingAggregate struct {
	Total     int      `json:"total"`
	AvgRating *float64 `json:"avg_rating"`
}

func (c *RedisCache) aggregateKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:rating", productID.String())
}

func (c *RedisCache) reviewsPageKey(productID uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("product:%s:reviews:limit:%d:offset:%d", productID.String(), limit, offset)
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// GetAggregate retrieves the cached review count and average for a product
func (c *RedisCache) GetAggregate(ctx context.Context, productID uuid.UUID) (int, *float64, error) {
	val, err := c.client.Get(ctx, c.aggregateKey(productID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil, domain.ErrNotFound
		}
		return 0, nil, err
	}

	var agg ratingAggregate
	if err := json.Unmarshal([]byte(val), &agg); err != nil {
		return 0, nil, err
	}

	return agg.Total, agg.AvgRating, nil
}

// SetAggregate stores the review count and average for a product and tracks
// the key for invalidation
func (c *RedisCache) SetAggregate(ctx context.Context, productID uuid.UUID, total int, avgRating *float64) error {
	data, err := json.Marshal(ratingAggregate{Total: total, AvgRating: avgRating})
	if err != nil {
		return err
	}

	key := c.aggregateKey(productID)
	trackingKey := c.productCacheKeysSet(productID)

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.productRatingTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.productRatingTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetReviewsPage retrieves a cached page of reviews for a product
func (c *RedisCache) GetReviewsPage(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.ReviewWithUser, error) {
	val, err := c.client.Get(ctx, c.reviewsPageKey(productID, limit, offset)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var reviews []*domain.ReviewWithUser
	if err := json.Unmarshal([]byte(val), &reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// SetReviewsPage stores a page of reviews and tracks the key in the
// per-product SET
func (c *RedisCache) SetReviewsPage(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.ReviewWithUser) error {
	key := c.reviewsPageKey(productID, limit, offset)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(reviews)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProduct drops every cached key tracked for a product
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, trackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}
