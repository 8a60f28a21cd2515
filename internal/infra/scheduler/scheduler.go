package scheduler

import (
	"context"
	"sync"
	"time"

	"counter_harvester/internal/app"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Loader is the part of app.HarvestLoader the scheduler drives.
type Loader interface {
	Run(ctx context.Context, req app.LoadRequest) (*app.LoadSummary, error)
}

// Worker is the part of app.HarvestWorker the scheduler drives.
type Worker interface {
	Run(ctx context.Context, consortiumID int64) (*app.RunSummary, error)
}

// HarvestScheduler runs the loader and the worker on cron schedules for
// every configured consortium.
type HarvestScheduler struct {
	cronEngine     *cron.Cron
	loader         Loader
	worker         Worker
	consortia      []int64
	logger         *logrus.Entry
	cronSpecLoader string
	cronSpecWorker string
	loaderTimeout  time.Duration
	workerTimeout  time.Duration

	mu      sync.Mutex
	running map[int64]bool // Consortia with a worker run in progress
}

func NewHarvestScheduler(
	loader Loader,
	worker Worker,
	consortia []int64,
	logger *logrus.Entry,
	cronSpecLoader string, // e.g. "0 1 * * *" (01:00 daily)
	cronSpecWorker string, // e.g. "*/10 * * * *"
) *HarvestScheduler {
	return &HarvestScheduler{
		cronEngine:     cron.New(cron.WithLocation(time.Local)),
		loader:         loader,
		worker:         worker,
		consortia:      consortia,
		logger:         logger,
		cronSpecLoader: cronSpecLoader,
		cronSpecWorker: cronSpecWorker,
		loaderTimeout:  10 * time.Minute,
		workerTimeout:  2 * time.Hour,
		running:        make(map[int64]bool),
	}
}

// Start registers the jobs and starts the cron engine.
func (s *HarvestScheduler) Start() error {
	s.logger.Info("Starting harvest scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecLoader, s.runLoaders); err != nil {
		return errors.Wrapf(err, "could not add loader cron job %q", s.cronSpecLoader)
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecWorker, s.runWorkers); err != nil {
		return errors.Wrapf(err, "could not add worker cron job %q", s.cronSpecWorker)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"loader_spec": s.cronSpecLoader,
		"worker_spec": s.cronSpecWorker,
		"consortia":   s.consortia,
	}).Info("Harvest scheduler started with jobs")
	return nil
}

func (s *HarvestScheduler) runLoaders() {
	s.logger.Info("Cron job triggered for harvest loader")
	for _, id := range s.consortia {
		ctx, cancel := context.WithTimeout(context.Background(), s.loaderTimeout)
		summary, err := s.loader.Run(ctx, app.LoadRequest{ConsortiumID: id})
		cancel()
		if err != nil {
			s.logger.WithError(err).WithField("consortium_id", id).Error("Harvest loader failed")
			continue
		}
		s.logger.WithFields(logrus.Fields{"consortium_id": id, "created": summary.Created, "queued": summary.Queued}).Info("Harvest loader done")
	}
}

// runWorkers starts one worker run per consortium. A consortium whose
// previous run is still going is skipped.
func (s *HarvestScheduler) runWorkers() {
	var wg sync.WaitGroup
	for _, id := range s.consortia {
		if !s.claim(id) {
			s.logger.WithField("consortium_id", id).Debug("Worker still running, skipping tick")
			continue
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer s.release(id)
			ctx, cancel := context.WithTimeout(context.Background(), s.workerTimeout)
			defer cancel()
			if _, err := s.worker.Run(ctx, id); err != nil {
				s.logger.WithError(err).WithField("consortium_id", id).Error("Harvest worker failed")
			}
		}(id)
	}
	wg.Wait()
}

func (s *HarvestScheduler) claim(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[id] {
		return false
	}
	s.running[id] = true
	return true
}

func (s *HarvestScheduler) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

func (s *HarvestScheduler) Stop() {
	s.logger.Info("Stopping harvest scheduler...")
	ctx := s.cronEngine.Stop() // Waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Harvest scheduler gracefully stopped")
}
