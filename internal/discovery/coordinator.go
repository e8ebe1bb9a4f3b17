// Package discovery runs project feature discovery in the background.
//
// At most one run per project is active at a time. The job cell of a
// project is checked and updated under one lock, so concurrent enqueues
// for the same project start exactly one run.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/metrics"
)

var (
	// ErrProjectNotFound is returned by Enqueue for an unknown project.
	ErrProjectNotFound = errors.New("project not found")

	// ErrConcurrentJobConflict is returned when a run tries to finish a
	// job cell that another run has taken over.
	ErrConcurrentJobConflict = errors.New("concurrent discovery job conflict")
)

// Defaults for Config fields left zero.
const (
	DefaultTimeout     = 30 * time.Minute
	DefaultConcurrency = 2
)

// Config configures a Coordinator.
type Config struct {
	Store    *data.Store
	Analysis *analysis.Service

	// Timeout bounds a whole run.
	Timeout time.Duration

	// Concurrency bounds parallel feature analyses within a run.
	Concurrency int

	// MaxFeatures caps the discovered feature list.
	MaxFeatures int
}

// Coordinator owns the discovery job state of every project.
type Coordinator struct {
	store       *data.Store
	analysis    *analysis.Service
	timeout     time.Duration
	concurrency int
	maxFeatures int

	mu   sync.Mutex
	jobs map[string]*jobCell
	wg   sync.WaitGroup

	log *logging.Logger
}

type jobCell struct {
	job  Job
	done chan struct{}
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = analysis.DefaultMaxFeatures
	}

	return &Coordinator{
		store:       cfg.Store,
		analysis:    cfg.Analysis,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		maxFeatures: cfg.MaxFeatures,
		jobs:        make(map[string]*jobCell),
		log:         logging.Global().WithComponent("discovery"),
	}
}

// Enqueue starts discovery for a project unless a run is active, or the
// project is already discovered and force is false. The run continues
// after ctx is cancelled.
func (c *Coordinator) Enqueue(ctx context.Context, projectID string, force bool) (EnqueueResult, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return EnqueueResult{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return EnqueueResult{}, fmt.Errorf("load project: %w", err)
	}

	seed, err := c.seedStatus(ctx, projectID)
	if err != nil {
		return EnqueueResult{}, err
	}

	c.mu.Lock()
	cell := c.cellLocked(projectID, seed)

	switch {
	case cell.job.Status == StatusRunning:
		job := cell.job
		c.mu.Unlock()
		return c.enqueued(EnqueueAlreadyRunning, job), nil
	case cell.job.Status == StatusCompleted && !force:
		job := cell.job
		c.mu.Unlock()
		return c.enqueued(EnqueueSkipped, job), nil
	}

	cell.job = Job{
		ProjectID: projectID,
		Status:    StatusRunning,
		RunID:     uuid.NewString(),
		Force:     force,
		StartedAt: time.Now().UTC(),
	}
	cell.done = make(chan struct{})
	job := cell.job
	c.wg.Add(1)
	c.mu.Unlock()

	runCtx, cancel := logging.DetachContextWithTimeout(ctx, c.timeout)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.run(runCtx, project, job.RunID)
	}()

	c.log.Info("[Discovery] started run %s for project %s (force=%v)", job.RunID, projectID, force)
	return c.enqueued(EnqueueStarted, job), nil
}

func (c *Coordinator) enqueued(status EnqueueStatus, job Job) EnqueueResult {
	metrics.DiscoveryEnqueues.WithLabelValues(string(status)).Inc()
	return EnqueueResult{Status: status, Job: job}
}

// Status returns the current job of a project. Projects that were never
// enqueued report completed when they already have features.
func (c *Coordinator) Status(ctx context.Context, projectID string) Job {
	c.mu.Lock()
	if cell, ok := c.jobs[projectID]; ok {
		job := cell.job
		c.mu.Unlock()
		return job
	}
	c.mu.Unlock()

	seed, err := c.seedStatus(ctx, projectID)
	if err != nil {
		c.log.Warn("[Discovery] status seed for %s: %v", projectID, err)
		seed = StatusNotStarted
	}
	return Job{ProjectID: projectID, Status: seed}
}

// Wait blocks until the project's current run finishes and returns the
// resulting job. It returns immediately if no run is active.
func (c *Coordinator) Wait(ctx context.Context, projectID string) (Job, error) {
	c.mu.Lock()
	cell, ok := c.jobs[projectID]
	if !ok || cell.job.Status != StatusRunning {
		c.mu.Unlock()
		return c.Status(ctx, projectID), nil
	}
	done := cell.done
	c.mu.Unlock()

	select {
	case <-done:
		return c.Status(ctx, projectID), nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Shutdown waits for in-flight runs. Runs are not cancelled.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("discovery shutdown: %w", ctx.Err())
	}
}

func (c *Coordinator) seedStatus(ctx context.Context, projectID string) (Status, error) {
	c.mu.Lock()
	_, known := c.jobs[projectID]
	c.mu.Unlock()
	if known {
		return "", nil
	}

	n, err := c.store.CountFeatures(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("seed job status: %w", err)
	}
	if n > 0 {
		return StatusCompleted, nil
	}
	return StatusNotStarted, nil
}

// cellLocked returns the project's cell, creating it with seed. c.mu must be held.
func (c *Coordinator) cellLocked(projectID string, seed Status) *jobCell {
	cell, ok := c.jobs[projectID]
	if !ok {
		if seed == "" {
			seed = StatusNotStarted
		}
		cell = &jobCell{job: Job{ProjectID: projectID, Status: seed}}
		c.jobs[projectID] = cell
	}
	return cell
}

// finish moves the run's job to its terminal state. The cell must still
// belong to runID.
func (c *Coordinator) finish(projectID, runID string, features int, runErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cell, ok := c.jobs[projectID]
	if !ok || cell.job.RunID != runID || cell.job.Status != StatusRunning {
		return fmt.Errorf("%w: project %s run %s", ErrConcurrentJobConflict, projectID, runID)
	}

	cell.job.FinishedAt = time.Now().UTC()
	cell.job.FeatureCount = features
	if runErr != nil {
		cell.job.Status = StatusFailed
		cell.job.Error = runErr.Error()
	} else {
		cell.job.Status = StatusCompleted
		cell.job.Error = ""
	}
	close(cell.done)
	return nil
}

// run discovers, analyses and stores the features of one project.
func (c *Coordinator) run(ctx context.Context, project *data.Project, runID string) {
	metrics.DiscoveryRunning.Inc()
	defer metrics.DiscoveryRunning.Dec()

	runLog := c.log.WithFields(map[string]interface{}{
		"run_id":     runID,
		"project_id": project.ID,
	})

	start := time.Now()
	count, runErr := c.discover(ctx, project)

	outcome := "completed"
	if runErr != nil {
		outcome = "failed"
		runLog.Error("[Discovery] run failed: %v", runErr)
	} else {
		runLog.Info("[Discovery] run stored %d features in %v",
			count, time.Since(start).Round(time.Millisecond))
	}

	if err := c.finish(project.ID, runID, count, runErr); err != nil {
		outcome = "conflict"
		runLog.Error("[Discovery] %v", err)
	}
	metrics.DiscoveryRuns.WithLabelValues(outcome).Inc()
}

func (c *Coordinator) discover(ctx context.Context, project *data.Project) (int, error) {
	names, err := c.analysis.DiscoverFeatures(ctx, project.RepoPath, c.maxFeatures)
	if err != nil {
		return 0, err
	}
	c.log.Debug("[Discovery] project %s: %d candidate features", project.ID, len(names))

	results := make([]*analysis.FeatureResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			result, err := c.analysis.Feature(gctx, project.RepoPath, name, analysis.FeatureQuery(name))
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				c.log.Warn("[Discovery] skipping feature %q: %v", name, err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var analysed []*analysis.FeatureResult
	for _, r := range results {
		if r != nil {
			analysed = append(analysed, r)
		}
	}
	if len(names) > 0 && len(analysed) == 0 {
		return 0, fmt.Errorf("none of %d discovered features could be analysed", len(names))
	}

	return c.replaceFeatures(ctx, project.ID, analysed)
}

// replaceFeatures swaps the project's previous features for the new set,
// each with its own chat session, in one transaction. A failed write
// leaves the previous set in place.
func (c *Coordinator) replaceFeatures(ctx context.Context, projectID string, results []*analysis.FeatureResult) (int, error) {
	var removed int
	err := c.store.InTx(ctx, func(tx *data.Store) error {
		var err error
		if removed, err = tx.DeleteFeatures(ctx, projectID); err != nil {
			return err
		}

		base := time.Now().UTC()
		for i, r := range results {
			featureID := uuid.NewString()
			chat, err := tx.CreateChat(ctx, data.ChatSpec{
				ProjectID:       projectID,
				FeatureID:       featureID,
				AnalysisType:    data.AnalysisProjectFeature,
				AnalysisContext: r.ContextText(),
			})
			if err != nil {
				return fmt.Errorf("feature %q session: %w", r.Name, err)
			}

			if _, err := tx.PutFeature(ctx, &data.Feature{
				ID:                featureID,
				ProjectID:         projectID,
				Name:              r.Name,
				Overview:          r.Overview,
				HighLevelDesign:   r.HighLevelDesign,
				Scope:             r.Scope,
				Dependencies:      r.Dependencies,
				KeyConsiderations: r.KeyConsiderations,
				Limitations:       r.Limitations,
				ChatID:            chat.ID,
				DiscoveredAt:      base.Add(time.Duration(i) * time.Microsecond),
			}); err != nil {
				return fmt.Errorf("feature %q: %w", r.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		c.log.Debug("[Discovery] project %s: replaced %d previous features", projectID, removed)
	}
	metrics.FeaturesPersisted.Add(float64(len(results)))
	return len(results), nil
}
