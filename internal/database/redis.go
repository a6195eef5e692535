package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"estatemap/internal/logging"
	"estatemap/internal/models"
)

// RedisRequestCache puts Redis in front of the request reads of a Store.
// Cached requests never change once written, so entries carry no TTL and
// are never invalidated. Redis failures are logged and fall through to the
// wrapped store.
type RedisRequestCache struct {
	Store
	client *redis.Client
	prefix string
	logger *logrus.Logger
}

func NewRedisRequestCache(store Store, client *redis.Client, prefix string, logger *logrus.Logger) *RedisRequestCache {
	return &RedisRequestCache{
		Store:  store,
		client: client,
		prefix: prefix,
		logger: logging.OrDiscard(logger),
	}
}

func (c *RedisRequestCache) key(hash string) string {
	if c.prefix == "" {
		return hash
	}
	return c.prefix + ":" + hash
}

func (c *RedisRequestCache) FindRequest(ctx context.Context, hash string) (*models.CachedRequest, error) {
	data, err := c.client.Get(ctx, c.key(hash)).Bytes()
	switch {
	case err == nil:
		var req models.CachedRequest
		if err := json.Unmarshal(data, &req); err == nil {
			return &req, nil
		}
		c.logger.WithField("hash", hash).Warn("Discarding undecodable Redis entry")
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).WithField("hash", hash).Warn("Redis get failed, reading from store")
	}

	req, err := c.Store.FindRequest(ctx, hash)
	if err != nil || req == nil {
		return req, err
	}
	c.remember(ctx, req)
	return req, nil
}

func (c *RedisRequestCache) InsertRequest(ctx context.Context, req *models.CachedRequest) error {
	if err := c.Store.InsertRequest(ctx, req); err != nil {
		return err
	}
	c.remember(ctx, req)
	return nil
}

func (c *RedisRequestCache) Close() error {
	storeErr := c.Store.Close()
	if err := c.client.Close(); err != nil && storeErr == nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return storeErr
}

func (c *RedisRequestCache) remember(ctx context.Context, req *models.CachedRequest) {
	data, err := json.Marshal(req)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(req.Hash), data, 0).Err(); err != nil {
		c.logger.WithError(err).WithField("hash", req.Hash).Debug("Redis set failed")
	}
}
