package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/metrics"
)

// SessionSweeper is the part of the session manager the job needs
type SessionSweeper interface {
	CleanupExpired() int
	ActiveCount() int
}

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    zerolog.Logger
}

// NewScheduler creates a stopped scheduler; call Start after adding jobs
func NewScheduler(logger zerolog.Logger) (*Scheduler, error) {
	l := logger.With().Str("component", "jobs").Logger()
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogger{logger: l}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, logger: l}, nil
}

// AddSessionCleanup sweeps expired conversation sessions every interval and
// publishes the active count
func (s *Scheduler) AddSessionCleanup(sessions SessionSweeper, every time.Duration, m *metrics.Metrics) error {
	if sessions == nil {
		return errors.New("nil session sweeper")
	}
	if every <= 0 {
		return fmt.Errorf("invalid cleanup interval %s", every)
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			RunSessionCleanup(sessions, m, s.logger)
		}),
		gocron.WithName("session-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}

	ev := s.logger.Info().Str("job", "session-cleanup").Dur("every", every)
	if next, err := job.NextRun(); err == nil {
		ev = ev.Time("next_run", next)
	}
	ev.Msg("Job scheduled")
	return nil
}

// RunSessionCleanup is one sweep
func RunSessionCleanup(sessions SessionSweeper, m *metrics.Metrics, logger zerolog.Logger) int {
	removed := sessions.CleanupExpired()
	active := sessions.ActiveCount()
	m.Sessions(active)
	if removed > 0 {
		logger.Info().Int("removed", removed).Int("active", active).Msg("Expired sessions removed")
	}
	return removed
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Debug().Int("jobs", len(s.scheduler.Jobs())).Msg("Scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}

// gocronLogger routes gocron's logs to zerolog
type gocronLogger struct {
	logger zerolog.Logger
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.logger.Debug().Fields(args).Msg(msg) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.logger.Info().Fields(args).Msg(msg) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.logger.Warn().Fields(args).Msg(msg) }
func (l *gocronLogger) Error(msg string, args ...any) { l.logger.Error().Fields(args).Msg(msg) }
