// Package scheduler runs periodic maintenance jobs such as the nightly
// repository sync.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/normanking/pmcortex/internal/logging"
)

// DefaultSyncSpec pulls every project at 3 AM.
const DefaultSyncSpec = "0 3 * * *"

// DefaultSyncTimeout bounds one sync pass.
const DefaultSyncTimeout = time.Hour

// ProjectSyncer updates every registered project checkout.
type ProjectSyncer interface {
	SyncAll(ctx context.Context) (int, error)
}

// Scheduler manages cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	syncer  ProjectSyncer
	timeout time.Duration
	running atomic.Bool
	log     *logging.Logger
}

// NewScheduler creates a scheduler that syncs projects on spec. An empty
// spec uses DefaultSyncSpec.
func NewScheduler(syncer ProjectSyncer, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSyncSpec
	}

	s := &Scheduler{
		cron:    cron.New(),
		syncer:  syncer,
		timeout: DefaultSyncTimeout,
		log:     logging.Global().WithComponent("scheduler"),
	}

	if _, err := s.cron.AddFunc(spec, s.syncProjects); err != nil {
		return nil, fmt.Errorf("schedule repository sync %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("[Scheduler] started with %d job(s)", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// syncProjects pulls all projects. A pass that is still running when the
// next one fires is skipped.
func (s *Scheduler) syncProjects() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("[Scheduler] previous repository sync still running, skipping")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	failed, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.log.Error("[Scheduler] repository sync: %v", err)
		return
	}
	s.log.Info("[Scheduler] repository sync finished in %v (%d failed)", time.Since(start).Round(time.Second), failed)
}
