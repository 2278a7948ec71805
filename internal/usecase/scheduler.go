package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"GrowthLens/internal/domain/models"
	applogger "GrowthLens/pkg/logger"
)

type reportRunner interface {
	Run(ctx context.Context, rep models.Report) (*models.ReportOutcome, error)
}

// Scheduler triggers reports on their cron schedule. Reports without a
// schedule are only run on demand.
type Scheduler struct {
	cron    *cron.Cron
	runner  reportRunner
	reports []models.Report
	timeout time.Duration
	l       *applogger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

// NewScheduler uses standard five-field cron expressions evaluated in UTC.
// timeout bounds a single run; zero means no bound.
func NewScheduler(runner reportRunner, reports []models.Report, timeout time.Duration, l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.NewNop()
	}
	cl := cronLogger{l: l}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		reports: reports,
		timeout: timeout,
		l:       l,
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers every scheduled report and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, rep := range s.reports {
		if rep.Schedule == "" {
			continue
		}
		id, err := s.cron.AddFunc(rep.Schedule, func() { s.fire(rep) })
		if err != nil {
			s.cancel()
			return fmt.Errorf("schedule report %s (%q): %w", rep.Name, rep.Schedule, err)
		}
		s.entries[rep.Name] = id
	}
	s.cron.Start()
	s.l.Info("Scheduler started", applogger.Int("reports", len(s.entries)))
	return nil
}

func (s *Scheduler) fire(rep models.Report) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.runner.Run(ctx, rep); err != nil {
		s.l.Warn("Scheduled report failed", applogger.String("report", rep.Name), applogger.Error(err))
	}
}

// Next returns the next activation time of a scheduled report.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Stop halts the cron loop, cancels running reports and waits for them
// until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(kv), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
