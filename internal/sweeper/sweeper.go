package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stepacademy/course-access/internal"
)

// Engine is the slice of the entitlement engine the sweeper drives.
type Engine interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs the expiry sweep on a cron schedule. The sweep itself is a
// single bulk update, so overlapping runs are harmless; SkipIfStillRunning
// just avoids pointless duplicate statements.
type Sweeper struct {
	engine   Engine
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
}

func New(engine Engine, schedule string, logger *slog.Logger) *Sweeper {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))
	return &Sweeper{
		engine:   engine,
		cron:     c,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
	}
}

// Start registers the job and launches the scheduler. It returns an error
// only for an unparseable schedule expression.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("expiry sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("expiry sweeper stopped")
}

// RunNow performs one sweep outside the schedule. Used by the CLI command.
func (s *Sweeper) RunNow(ctx context.Context) (int64, error) {
	return s.engine.SweepExpired(ctx, time.Now().UTC())
}

func (s *Sweeper) runOnce() {
	ctx, cancel := internal.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, err := s.engine.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("scheduled expiry sweep failed", "error", err)
		return
	}
	s.logger.Debug("scheduled expiry sweep completed", "expired", count)
}
