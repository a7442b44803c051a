// Package scheduler runs recurring crawl jobs inside the daemon process.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/config"
)

// RunFunc executes one crawl over the given sources.
type RunFunc func(ctx context.Context, sources []string) error

// State is a job's current lifecycle phase.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Status is a point-in-time snapshot of one scheduled job.
type Status struct {
	ID        string    `json:"id"`
	Sources   []string  `json:"sources"`
	Spec      string    `json:"spec"`
	State     State     `json:"state"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int64     `json:"runs"`
	Skipped   int64     `json:"skipped"`
}

type job struct {
	id      string
	sources []string
	spec    string
	entryID cron.EntryID

	running atomic.Bool
	paused  atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
	lastErr string
	runs    int64
	skipped int64
}

// Scheduler owns the cron runner and the job table.
type Scheduler struct {
	cron   *cron.Cron
	run    RunFunc
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// New builds a Scheduler in the given timezone (UTC when empty).
func New(timezone string, run RunFunc, logger *zap.Logger) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		run:    run,
		logger: logger,
		jobs:   make(map[string]*job),
	}, nil
}

// AddJob registers a recurring job. Interval jobs use Every; otherwise
// Cron must hold a cron spec. Disabled jobs are registered paused.
func (s *Scheduler) AddJob(jc config.ScheduledJob) error {
	if jc.ID == "" {
		return fmt.Errorf("job id is required")
	}
	spec := jc.Cron
	if jc.Every > 0 {
		spec = fmt.Sprintf("@every %s", jc.Every)
	}
	if spec == "" {
		return fmt.Errorf("job %s needs either an interval or a cron spec", jc.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[jc.ID]; exists {
		return fmt.Errorf("job %s already registered", jc.ID)
	}

	j := &job{id: jc.ID, sources: jc.Sources, spec: spec}
	j.paused.Store(jc.Disabled)
	entryID, err := s.cron.AddFunc(spec, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", jc.ID, err)
	}
	j.entryID = entryID
	s.jobs[jc.ID] = j
	s.logger.Info("job registered", zap.String("job", jc.ID), zap.String("spec", spec))
	return nil
}

// RemoveJob unregisters a job. A run already in flight finishes.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %q", id)
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, id)
	return nil
}

// PauseJob keeps the job registered but skips its firings.
func (s *Scheduler) PauseJob(id string) error {
	j, err := s.lookup(id)
	if err != nil {
		return err
	}
	j.paused.Store(true)
	return nil
}

// ResumeJob reenables a paused job.
func (s *Scheduler) ResumeJob(id string) error {
	j, err := s.lookup(id)
	if err != nil {
		return err
	}
	j.paused.Store(false)
	return nil
}

// RunNow fires the job immediately unless it is already running, in
// which case the request coalesces into the in-flight run.
func (s *Scheduler) RunNow(id string) error {
	j, err := s.lookup(id)
	if err != nil {
		return err
	}
	go s.execute(j)
	return nil
}

// ListJobs snapshots every registered job.
func (s *Scheduler) ListJobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, s.statusLocked(j))
	}
	return out
}

// JobStatus snapshots one job.
func (s *Scheduler) JobStatus(id string) (Status, error) {
	j, err := s.lookup(id)
	if err != nil {
		return Status{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(j), nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// execute runs one firing. Overlapping firings coalesce: while a run is
// in flight, further triggers for the same job are counted and skipped
// rather than queued.
func (s *Scheduler) execute(j *job) {
	if j.paused.Load() {
		return
	}
	if !j.running.CompareAndSwap(false, true) {
		j.mu.Lock()
		j.skipped++
		j.mu.Unlock()
		s.logger.Debug("job still running, skipping firing", zap.String("job", j.id))
		return
	}
	defer j.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job", j.id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			j.mu.Lock()
			j.lastErr = fmt.Sprintf("panic: %v", r)
			j.mu.Unlock()
		}
	}()

	s.logger.Info("job firing", zap.String("job", j.id), zap.Strings("sources", j.sources))
	err := s.run(context.Background(), j.sources)

	j.mu.Lock()
	j.lastRun = time.Now()
	j.runs++
	if err != nil {
		j.lastErr = err.Error()
	} else {
		j.lastErr = ""
	}
	j.mu.Unlock()
	if err != nil {
		s.logger.Warn("job run failed", zap.String("job", j.id), zap.Error(err))
	}
}

func (s *Scheduler) lookup(id string) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("unknown job %q", id)
	}
	return j, nil
}

func (s *Scheduler) statusLocked(j *job) Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	state := StateIdle
	if j.paused.Load() {
		state = StatePaused
	} else if j.running.Load() {
		state = StateRunning
	}
	status := Status{
		ID:        j.id,
		Sources:   append([]string(nil), j.sources...),
		Spec:      j.spec,
		State:     state,
		LastRun:   j.lastRun,
		LastError: j.lastErr,
		Runs:      j.runs,
		Skipped:   j.skipped,
	}
	if entry := s.cron.Entry(j.entryID); entry.ID == j.entryID {
		status.NextRun = entry.Next
	}
	return status
}

// Default per-source refresh intervals, assigned round-robin so sources
// stagger instead of firing together.
var defaultTiers = []time.Duration{4 * time.Hour, 6 * time.Hour, 8 * time.Hour}

// DefaultJobs is the schedule used when none is configured: each source
// on a staggered interval, a nightly full sweep at 02:00, and a weekly
// deep crawl early Saturday.
func DefaultJobs(sources []config.SourceConfig) []config.ScheduledJob {
	names := make([]string, 0, len(sources))
	var jobs []config.ScheduledJob
	for i, src := range sources {
		names = append(names, src.Name)
		jobs = append(jobs, config.ScheduledJob{
			ID:      src.Name,
			Sources: []string{src.Name},
			Every:   defaultTiers[i%len(defaultTiers)],
		})
	}
	jobs = append(jobs,
		config.ScheduledJob{ID: "nightly-full", Sources: names, Cron: "0 2 * * *"},
		config.ScheduledJob{ID: "weekly-deep", Sources: names, Cron: "0 3 * * 6"},
	)
	return jobs
}
