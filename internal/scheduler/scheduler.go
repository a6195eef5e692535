package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"estatemap/internal/logging"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context) error

// Scheduler runs a job once at startup and then at a fixed interval. Runs
// never overlap: a tick that arrives while the job is still running is
// skipped.
type Scheduler struct {
	name     string
	job      Job
	interval time.Duration
	logger   *logrus.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	jobMutex sync.Mutex

	mu   sync.Mutex
	runs int
}

// NewScheduler creates a new scheduler
func NewScheduler(name string, job Job, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		name:     name,
		job:      job,
		interval: interval,
		logger:   logging.OrDiscard(logger),
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduled runs. Jobs receive a context derived from ctx
// that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.runScheduler(ctx)
}

func (s *Scheduler) runScheduler(ctx context.Context) {
	defer s.wg.Done()

	s.logger.WithField("job", s.name).Info("Running startup job")
	s.RunNow(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunNow(ctx)
		}
	}
}

// RunNow runs the job unless a run is already in progress. It reports
// whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	if !s.jobMutex.TryLock() {
		s.logger.WithField("job", s.name).Debug("Skipping run while the previous one is in progress")
		return false
	}
	defer s.jobMutex.Unlock()

	log := s.logger.WithField("job", s.name)
	start := time.Now()
	log.Info("Starting scheduled job")

	err := s.job(ctx)

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("Scheduled job failed")
	} else {
		log.WithField("duration", time.Since(start).String()).Info("Scheduled job completed successfully")
	}
	return true
}

// Runs returns how many times the job has run
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stop cancels a running job and waits for the scheduler to exit
func (s *Scheduler) Stop() {
	close(s.stopChan)
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
