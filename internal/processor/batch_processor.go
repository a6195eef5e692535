package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"estatemap/config"
	"estatemap/internal/database"
	"estatemap/internal/logging"
	"estatemap/internal/models"
	"estatemap/internal/queue"
)

// Stats counts the outcome of an import
type Stats struct {
	Read       int `json:"read"`
	Invalid    int `json:"invalid"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// BatchProcessor writes imported properties to the store in batches taken
// from a queue, retrying failed batches.
type BatchProcessor struct {
	store  database.PropertyStore
	queue  *queue.PropertyQueue
	config *config.Config
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	sleep  func(time.Duration)
	now    func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(store database.PropertyStore, queue *queue.PropertyQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		store:  store,
		queue:  queue,
		config: config,
		logger: logging.OrDiscard(logger),
		ctx:    ctx,
		cancel: cancel,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Start subscribes to the queue and begins processing batches
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start()
}

// Stop closes the queue, waits for queued batches and returns the totals
func (p *BatchProcessor) Stop() Stats {
	p.queue.Close()
	p.queue.Wait()
	p.cancel()
	return p.Stats()
}

func (p *BatchProcessor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Import reads a stream of JSON properties from r and queues them in
// batches. Properties without a source id are skipped; new properties
// default to the data_extracted status. Import stops the processor before
// returning.
func (p *BatchProcessor) Import(ctx context.Context, r io.Reader) (Stats, error) {
	p.Start()

	size := p.config.BatchProcessing.MaxBatchSize
	batch := make([]models.Property, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.queue.PushWait(ctx, batch); err != nil {
			return err
		}
		batch = make([]models.Property, 0, size)
		return nil
	}

	dec := json.NewDecoder(r)
	var importErr error
	for line := 1; ; line++ {
		var prop models.Property
		err := dec.Decode(&prop)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			importErr = fmt.Errorf("failed to decode property %d: %w", line, err)
			break
		}

		if !p.normalize(&prop) {
			p.logger.WithField("record", line).Warn("Skipping property without source id")
			p.count(func(s *Stats) { s.Read++; s.Invalid++ })
			continue
		}
		p.count(func(s *Stats) { s.Read++ })

		batch = append(batch, prop)
		if len(batch) >= size {
			if importErr = flush(); importErr != nil {
				break
			}
		}
	}
	// Properties read before a decode error are still written
	if err := flush(); err != nil && importErr == nil {
		importErr = err
	}

	stats := p.Stop()
	p.logger.WithFields(logrus.Fields{
		"read":       stats.Read,
		"inserted":   stats.Inserted,
		"duplicates": stats.Duplicates,
		"failed":     stats.Failed,
	}).Info("Property import finished")
	return stats, importErr
}

func (p *BatchProcessor) normalize(prop *models.Property) bool {
	prop.SourceID = strings.TrimSpace(prop.SourceID)
	if prop.SourceID == "" {
		return false
	}
	prop.EstateOrBuildingName = strings.TrimSpace(prop.EstateOrBuildingName)
	prop.District = strings.TrimSpace(prop.District)
	if prop.Status == "" {
		prop.Status = models.StatusDataExtracted
	}
	if prop.UpdatedAt.IsZero() {
		prop.UpdatedAt = p.now()
	}
	return true
}

// processBatch writes one batch with retries. A batch that collides with
// stored properties and was rolled back is written one by one so only the
// duplicates are lost.
func (p *BatchProcessor) processBatch(batch []models.Property) error {
	maxRetries := p.config.BatchProcessing.MaxRetries

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, maxRetries)
			p.sleep(p.config.BatchProcessing.RetryDelay)
		}

		err = p.store.InsertProperties(p.ctx, batch)
		if err == nil {
			p.count(func(s *Stats) { s.Inserted += len(batch) })
			p.logger.Debugf("Successfully processed batch of %d properties", len(batch))
			return nil
		}
		var partial *database.BatchDuplicateError
		if errors.As(err, &partial) {
			p.count(func(s *Stats) {
				s.Duplicates += len(partial.Indexes)
				s.Inserted += len(batch) - len(partial.Indexes)
			})
			return nil
		}
		if errors.Is(err, database.ErrDuplicate) {
			p.insertEach(batch)
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	p.count(func(s *Stats) { s.Failed += len(batch) })
	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries+1, err)
}

func (p *BatchProcessor) insertEach(batch []models.Property) {
	for _, prop := range batch {
		err := p.store.InsertProperties(p.ctx, []models.Property{prop})
		switch {
		case err == nil:
			p.count(func(s *Stats) { s.Inserted++ })
		case errors.Is(err, database.ErrDuplicate):
			p.logger.WithField("source_id", prop.SourceID).Debug("Property already stored")
			p.count(func(s *Stats) { s.Duplicates++ })
		default:
			p.logger.WithError(err).WithField("source_id", prop.SourceID).Error("Failed to store property")
			p.count(func(s *Stats) { s.Failed++ })
		}
	}
}

func (p *BatchProcessor) count(update func(*Stats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update(&p.stats)
}
