package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"EquityScreener/internal/notifier"
	"EquityScreener/internal/recorder"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a screening run is already in progress")

// Runner performs one screening run. app.Runner implements it.
type Runner interface {
	Run(ctx context.Context) (*recorder.RunRecord, error)
	LastReport() (string, error)
}

// Scheduler triggers screening runs from cron and from bot commands.
// At most one run is active at a time.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Ctx    context.Context

	running atomic.Bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Runner: runner,
		Ctx:    ctx,
	}
}

// Register adds the daily screening task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes a screening run immediately unless one is already active.
func (s *Scheduler) RunNow() (*recorder.RunRecord, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)
	return s.Runner.Run(s.Ctx)
}

func (s *Scheduler) dailyTask() {
	log.Info().Msg("running daily screen")
	if _, err := s.RunNow(); err != nil {
		log.Error().Err(err).Msg("daily screen failed")
	}
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/scan":
		if s.running.Load() {
			return ErrRunInProgress.Error()
		}
		go s.dailyTask()
		return "Screening run started."
	case "/last":
		report, err := s.Runner.LastReport()
		if err != nil {
			log.Error().Err(err).Msg("load last run")
			return "Could not load the last run."
		}
		return report
	default:
		return notifier.HelpText
	}
}
