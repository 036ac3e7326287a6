package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rpgo/trust-solvency/internal/domain"
)

// Runner produces one simulation run. It should reload its inputs so each tick sees fresh data.
type Runner func(ctx context.Context) (*domain.SimulationResult, error)

// RunSaver persists finished runs.
type RunSaver interface {
	SaveRun(ctx context.Context, result *domain.SimulationResult) error
}

// Status is what the scheduler remembers about its latest tick.
type Status struct {
	Runs     int
	Failures int
	LastID   string
	LastErr  error
}

// Scheduler re-runs the configured scenario on a cron schedule and saves each run.
type Scheduler struct {
	Cron   *cron.Cron
	Run    Runner
	Store  RunSaver
	Logger *slog.Logger
	Ctx    context.Context

	mu     sync.Mutex
	status Status
}

// NewScheduler creates a scheduler using standard five-field cron specs.
// Overlapping ticks are skipped while a run is still in progress.
func NewScheduler(ctx context.Context, run Runner, store RunSaver, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Run:    run,
		Store:  store,
		Logger: logger,
		Ctx:    ctx,
	}
}

// Register adds the re-run task under a cron spec such as "0 6 * * 1".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.task); err != nil {
		return fmt.Errorf("register simulation task %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes the task immediately (for --run-on-start) and returns its error.
func (s *Scheduler) RunNow() error {
	return s.execute()
}

// Status returns a snapshot of the run counters.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) task() {
	if err := s.execute(); err != nil {
		s.Logger.Error("scheduled simulation failed", "error", err)
	}
}

func (s *Scheduler) execute() error {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Logger.Info("running scheduled simulation")
	result, err := s.Run(ctx)
	if err == nil && s.Store != nil {
		if saveErr := s.Store.SaveRun(ctx, result); saveErr != nil {
			err = fmt.Errorf("save run %s: %w", result.RunID, saveErr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Runs++
	s.status.LastErr = err
	if err != nil {
		s.status.Failures++
		return err
	}
	s.status.LastID = result.RunID
	s.Logger.Info("scheduled simulation saved",
		"run_id", result.RunID,
		"months", result.Summary.Months,
		"final_fund_ratio", float64(result.Summary.FinalFundRatio),
	)
	return nil
}
