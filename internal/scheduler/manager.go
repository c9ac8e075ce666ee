package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
)

const (
	reconcileJobName  = "recompute-raised-amounts"
	tokenPurgeJobName = "purge-revoked-tokens"

	tokenPurgeInterval = time.Hour
)

// Reconciler rebuilds derived project totals.
type Reconciler interface {
	RecomputeRaised(ctx context.Context) error
}

// TokenPurger drops revoked refresh tokens that have expired.
type TokenPurger interface {
	PurgeRevoked(ctx context.Context) error
}

// Manager owns the background jobs of the server process.
type Manager struct {
	scheduler  gocron.Scheduler
	reconcile  Reconciler
	interval   time.Duration
	purger     TokenPurger
	purgeEvery time.Duration
}

// NewManager builds the scheduler. reconcile may be nil to skip the reconcile job.
func NewManager(reconcile Reconciler, interval time.Duration) (*Manager, error) {
	if reconcile != nil && interval <= 0 {
		return nil, fmt.Errorf("reconcile interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Manager{scheduler: s, reconcile: reconcile, interval: interval, purgeEvery: tokenPurgeInterval}, nil
}

// WithTokenPurge adds the hourly purge of expired revoked tokens.
func (m *Manager) WithTokenPurge(p TokenPurger) *Manager {
	m.purger = p
	return m
}

// Start registers the jobs and starts the scheduler.
func (m *Manager) Start() error {
	if m.reconcile != nil {
		if err := m.register(reconcileJobName, m.interval, m.reconcile.RecomputeRaised); err != nil {
			return err
		}
	}
	if m.purger != nil {
		if err := m.register(tokenPurgeJobName, m.purgeEvery, m.purger.PurgeRevoked); err != nil {
			return err
		}
	}
	m.scheduler.Start()
	logger.Infof("[scheduler] started with %d jobs", len(m.scheduler.Jobs()))
	return nil
}

func (m *Manager) register(name string, every time.Duration, run func(context.Context) error) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(m.runJob, name, every, run),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// runJob bounds one run by the job's own interval.
func (m *Manager) runJob(name string, timeout time.Duration, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	if err := run(ctx); err != nil {
		logger.Errorf("[scheduler] %s failed: %v", name, err)
		return
	}
	logger.Infof("[scheduler] %s done in %s", name, time.Since(start).Round(time.Millisecond))
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Errorf("[scheduler] shutdown: %v", err)
		return
	}
	logger.Infof("[scheduler] stopped")
}
