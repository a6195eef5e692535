package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"estatemap/config"
	"estatemap/internal/models"
)

var (
	// ErrNotFound is returned by updates that match no record
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert collides with a unique key
	ErrDuplicate = errors.New("duplicate key")
)

// BatchDuplicateError reports a batch insert that stored every record except
// those at Indexes, which collided with stored ones.
type BatchDuplicateError struct {
	Entity  string
	Indexes []int
}

func (e *BatchDuplicateError) Error() string {
	return fmt.Sprintf("%s: %d of the batch already stored", e.Entity, len(e.Indexes))
}

func (e *BatchDuplicateError) Unwrap() error {
	return ErrDuplicate
}

// RequestStore persists cached Places requests. Rows are insert-only.
type RequestStore interface {
	// FindRequest returns nil, nil when no row has the hash
	FindRequest(ctx context.Context, hash string) (*models.CachedRequest, error)
	InsertRequest(ctx context.Context, req *models.CachedRequest) error
	// CountRequestsByTier counts rows of op with from <= requested_at < to
	CountRequestsByTier(ctx context.Context, op models.Operation, from, to time.Time) (models.Usage, error)
}

type PlaceStore interface {
	GetPlace(ctx context.Context, id string) (*models.Place, error)
	GetPlaces(ctx context.Context, ids []string) ([]models.Place, error)
	InsertPlace(ctx context.Context, place *models.Place) error
	// UpdatePlace rewrites the API fields of a place, never its photo state
	UpdatePlace(ctx context.Context, place *models.Place) error
	SetPlacePhotos(ctx context.Context, id string, blobs []string) error
}

type BuildingStore interface {
	GetBuildingByPlaceID(ctx context.Context, placeID string) (*models.EstateBuilding, error)
	InsertBuilding(ctx context.Context, building *models.EstateBuilding) error
}

type PropertyStore interface {
	// InsertProperties stores all of props or none of them, unless it returns
	// a *BatchDuplicateError naming the records it skipped.
	InsertProperties(ctx context.Context, props []models.Property) error
	PendingProperties(ctx context.Context, limit int) ([]models.Property, error)
	UpdateProperty(ctx context.Context, sourceID string, update models.PropertyUpdate) error
}

// Store is everything the lookup core reads and writes
type Store interface {
	RequestStore
	PlaceStore
	BuildingStore
	PropertyStore
	Close() error
}

// Open connects the configured backend, runs its migrations and wraps it in
// the Redis read-through cache when an address is configured.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Store, error) {
	var store Store
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := NewSQLStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, err
		}
		store = s
	case "mongo":
		s, err := NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(ctx); err != nil {
			s.Close()
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}

	if cfg.Store.RedisAddr == "" {
		return store, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Store.RedisAddr,
		Password: cfg.Store.RedisPassword,
		DB:       cfg.Store.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.Store.RedisAddr).Warn("Redis unreachable, reads fall through to the store")
	}
	return NewRedisRequestCache(store, client, cfg.Store.RedisPrefix, logger), nil
}
