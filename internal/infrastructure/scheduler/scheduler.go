// Package scheduler runs the engine's background maintenance: challenge
// cycle rollover, flex-save accrual, and streak validation during the hours
// when no user action arrives to trigger them inline.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config holds scheduler settings.
type Config struct {
	// Location is the timezone for daily-rollover jobs.
	Location *time.Location

	// RolloverHour and RolloverMinute set the local time of the daily
	// rollover job, shortly after midnight so the new day's challenges
	// exist before the first routine.
	RolloverHour   int
	RolloverMinute int

	// MaxConcurrentJobs bounds parallel job execution.
	MaxConcurrentJobs int

	// JobTimeout bounds a single job run.
	JobTimeout time.Duration
}

// Scheduler manages and executes scheduled jobs on top of gocron.
type Scheduler struct {
	mu sync.Mutex

	cfg   Config
	log   *logger.Logger
	sched gocron.Scheduler

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates a scheduler. Jobs are registered before Start.
func New(cfg Config, log *logger.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}

	sched, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Location),
		gocron.WithLimitConcurrentJobs(uint(cfg.MaxConcurrentJobs), gocron.LimitModeWait),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cfg:    cfg,
		log:    log.With(logger.Component("scheduler")),
		sched:  sched,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Every registers a job to run at a fixed interval.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(job) }),
		gocron.WithName(job.Name()),
	)
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", job.Name(), err)
	}
	return nil
}

// Daily registers a job to run once a day at the configured rollover time.
func (s *Scheduler) Daily(job Job) error {
	_, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(s.cfg.RolloverHour), uint(s.cfg.RolloverMinute), 0),
		)),
		gocron.NewTask(func() { s.run(job) }),
		gocron.WithName(job.Name()),
	)
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", job.Name(), err)
	}
	return nil
}

// run executes one job with timeout and logging.
func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		s.log.Error("job failed",
			logger.String("job", job.Name()),
			logger.Duration("elapsed", elapsed),
			logger.Err(err))
		return
	}

	s.log.Debug("job completed",
		logger.String("job", job.Name()),
		logger.Duration("elapsed", elapsed))
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.sched.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.sched.Jobs())))
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.cancel()

	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	s.log.Info("scheduler stopped")
	return nil
}
