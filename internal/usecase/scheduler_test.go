package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthLens/internal/domain/models"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (c *countingRunner) Run(ctx context.Context, _ models.Report) (*models.ReportOutcome, error) {
	c.calls.Add(1)
	return &models.ReportOutcome{}, c.err
}

func TestSchedulerRegistersOnlyScheduledReports(t *testing.T) {
	reports := []models.Report{
		{Name: "daily", Schedule: "0 6 * * *"},
		{Name: "adhoc"},
	}
	s := NewScheduler(&countingRunner{}, reports, time.Minute, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	next, ok := s.Next("daily")
	require.True(t, ok)
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, time.UTC, next.Location())

	_, ok = s.Next("adhoc")
	assert.False(t, ok)
}

func TestSchedulerRejectsBadExpression(t *testing.T) {
	s := NewScheduler(&countingRunner{}, []models.Report{{Name: "bad", Schedule: "every day"}}, 0, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerFireRunsReport(t *testing.T) {
	r := &countingRunner{err: errors.New("boom")}
	s := NewScheduler(r, nil, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	s.fire(models.Report{Name: "x"})
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestSchedulerStopWaits(t *testing.T) {
	s := NewScheduler(&countingRunner{}, nil, 0, nil)
	require.NoError(t, s.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
