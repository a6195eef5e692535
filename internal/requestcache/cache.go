package requestcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"estatemap/internal/database"
	"estatemap/internal/logging"
	"estatemap/internal/metrics"
	"estatemap/internal/models"
	"estatemap/internal/places"
)

// ErrNotPersisted is returned alongside a live result that could not be
// stored. The result is still valid; the next identical call pays again.
var ErrNotPersisted = errors.New("result not persisted")

// LiveFunc performs the billable call on a cache miss
type LiveFunc func(ctx context.Context) (json.RawMessage, error)

// Cache deduplicates Places calls by the hash of their operation and
// canonical options. Each hash is fetched live at most once; the stored
// row also counts towards the monthly quota of its tier.
type Cache struct {
	store  database.RequestStore
	logger *logrus.Logger
	now    func() time.Time
}

func New(store database.RequestStore, logger *logrus.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logging.OrDiscard(logger),
		now:    time.Now,
	}
}

// Lookup returns the stored result of opts without ever calling out
func (c *Cache) Lookup(ctx context.Context, opts places.Options) (json.RawMessage, bool, error) {
	_, hash, err := hashOptions(opts)
	if err != nil {
		return nil, false, err
	}

	stored, err := c.store.FindRequest(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, nil
	}

	metrics.CacheHitsTotal.WithLabelValues(string(opts.Operation())).Inc()
	return stored.Result, true, nil
}

// Execute returns the stored result for opts, or runs live, stores its
// result under tier and returns it.
func (c *Cache) Execute(ctx context.Context, tier models.Tier, opts places.Options, live LiveFunc) (json.RawMessage, error) {
	op := opts.Operation()
	canonical, hash, err := hashOptions(opts)
	if err != nil {
		return nil, err
	}

	log := c.logger.WithFields(logrus.Fields{
		"operation": op,
		"hash":      hash,
	})

	stored, err := c.store.FindRequest(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read request cache: %w", err)
	}
	if stored != nil {
		metrics.CacheHitsTotal.WithLabelValues(string(op)).Inc()
		log.Debug("Request cache hit")
		return stored.Result, nil
	}

	log.WithField("tier", tier).Info("Request cache miss, calling Places")
	result, err := live(ctx)
	if err != nil {
		metrics.LiveCallErrorsTotal.WithLabelValues(string(op)).Inc()
		return nil, err
	}
	metrics.LiveCallsTotal.WithLabelValues(string(op), string(tier)).Inc()

	row := &models.CachedRequest{
		Hash:        hash,
		Operation:   op,
		Options:     json.RawMessage(canonical),
		Tier:        tier,
		RequestedAt: c.now(),
		Result:      result,
	}
	err = c.store.InsertRequest(ctx, row)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, database.ErrDuplicate):
		// Another caller stored this hash first; its row is authoritative
		winner, ferr := c.store.FindRequest(ctx, hash)
		if ferr == nil && winner != nil {
			return winner.Result, nil
		}
		return result, nil
	default:
		metrics.CacheWriteFailuresTotal.WithLabelValues(string(op)).Inc()
		log.WithError(err).Warn("Failed to persist Places result")
		return result, fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
}

func hashOptions(opts places.Options) ([]byte, string, error) {
	canonical, err := Canonicalize(opts)
	if err != nil {
		return nil, "", err
	}
	return canonical, Key(opts.Operation(), canonical), nil
}
