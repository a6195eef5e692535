package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"estatemap/internal/database"
	"estatemap/internal/logging"
	"estatemap/internal/metrics"
	"estatemap/internal/models"
)

type Resolver interface {
	Resolve(ctx context.Context, name, district string) (*models.Place, error)
}

type Materializer interface {
	GetOrCreate(ctx context.Context, p *models.Place) (*models.EstateBuilding, error)
}

type PhotoDownloader interface {
	DownloadPhotos(ctx context.Context, p *models.Place) error
}

type Config struct {
	// Maximum number of properties to load per batch
	BatchSize int

	// Maximum number of batches per run, 0 runs until nothing is pending
	MaxBatches int

	DownloadPhotos bool
}

// BatchResult counts the outcomes of one batch
type BatchResult struct {
	Processed int
	Mapped    int
	NotFound  int
	Failed    int
}

func (r *BatchResult) add(status models.PropertyStatus) {
	r.Processed++
	switch status {
	case models.StatusMapped:
		r.Mapped++
	case models.StatusNotFound:
		r.NotFound++
	case models.StatusMapError:
		r.Failed++
	}
}

// Summary is the outcome of a whole run
type Summary struct {
	RunID   string
	Batches int
	BatchResult
}

// Driver maps pending properties to estate buildings, one property at a
// time.
type Driver struct {
	store     database.PropertyStore
	resolver  Resolver
	buildings Materializer
	photos    PhotoDownloader
	cfg       Config
	logger    *logrus.Logger
	now       func() time.Time
}

// NewDriver builds a driver. photos may be nil when downloads are disabled.
func NewDriver(store database.PropertyStore, resolver Resolver, buildings Materializer, photos PhotoDownloader,
	cfg Config, logger *logrus.Logger) *Driver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Driver{
		store:     store,
		resolver:  resolver,
		buildings: buildings,
		photos:    photos,
		cfg:       cfg,
		logger:    logging.OrDiscard(logger),
		now:       time.Now,
	}
}

// Run processes batches until none are pending, MaxBatches is reached or
// ctx is cancelled. Cancellation takes effect between properties.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := d.logger.WithField("run_id", summary.RunID)
	log.WithFields(logrus.Fields{
		"batch_size":  d.cfg.BatchSize,
		"max_batches": d.cfg.MaxBatches,
	}).Info("Starting mapping run")

	for d.cfg.MaxBatches == 0 || summary.Batches < d.cfg.MaxBatches {
		result, err := d.ProcessBatch(ctx)
		summary.merge(result)
		if result.Processed > 0 {
			summary.Batches++
			log.WithFields(logrus.Fields{
				"batch":     summary.Batches,
				"processed": result.Processed,
				"mapped":    result.Mapped,
				"not_found": result.NotFound,
				"failed":    result.Failed,
			}).Info("Batch finished")
		}
		if err != nil {
			log.WithError(err).Warn("Mapping run stopped")
			return summary, err
		}
		if result.Processed == 0 {
			break
		}
	}

	log.WithFields(logrus.Fields{
		"batches":   summary.Batches,
		"processed": summary.Processed,
		"mapped":    summary.Mapped,
	}).Info("Mapping run finished")
	return summary, nil
}

func (s *Summary) merge(r BatchResult) {
	s.Processed += r.Processed
	s.Mapped += r.Mapped
	s.NotFound += r.NotFound
	s.Failed += r.Failed
}

// ProcessBatch maps up to BatchSize pending properties
func (d *Driver) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	props, err := d.store.PendingProperties(ctx, d.cfg.BatchSize)
	if err != nil {
		return result, err
	}

	for _, prop := range props {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		update, err := d.ProcessProperty(ctx, prop)
		if err != nil {
			return result, err
		}
		// A finished property is recorded even if ctx was cancelled meanwhile
		if err := d.store.UpdateProperty(context.WithoutCancel(ctx), prop.SourceID, update); err != nil {
			return result, fmt.Errorf("failed to record outcome of %s: %w", prop.SourceID, err)
		}

		metrics.PropertiesMappedTotal.WithLabelValues(string(update.Status)).Inc()
		result.add(update.Status)
	}
	return result, nil
}

// ProcessProperty resolves one property and returns the outcome to record.
// The error is non-nil only when ctx was cancelled mid-way.
func (d *Driver) ProcessProperty(ctx context.Context, prop models.Property) (models.PropertyUpdate, error) {
	log := d.logger.WithField("source_id", prop.SourceID)
	update := models.PropertyUpdate{UpdatedAt: d.now()}

	name := strings.TrimSpace(prop.EstateOrBuildingName)
	if name == "" {
		log.Info("Skipping property without estate or building name")
		update.Status = models.StatusNotFound
		return update, nil
	}

	place, err := d.resolver.Resolve(ctx, name, strings.TrimSpace(prop.District))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return update, ctxErr
		}
		return d.failed(log, update, err), nil
	}
	if place == nil {
		log.WithField("name", name).Info("No place found")
		update.Status = models.StatusNotFound
		return update, nil
	}

	building, err := d.buildings.GetOrCreate(ctx, place)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return update, err
		}
		return d.failed(log, update, err), nil
	}

	if d.cfg.DownloadPhotos && d.photos != nil {
		if err := d.photos.DownloadPhotos(ctx, place); err != nil {
			log.WithError(err).WithField("place_id", place.ID).Warn("Photo download failed")
		}
	}

	log.WithField("building_id", building.ID).Info("Mapped property")
	update.Status = models.StatusMapped
	update.EstateBuildingID = building.ID
	return update, nil
}

func (d *Driver) failed(log *logrus.Entry, update models.PropertyUpdate, err error) models.PropertyUpdate {
	log.WithError(err).Error("Failed to map property")
	update.Status = models.StatusMapError
	update.MapError = err.Error()
	return update
}
