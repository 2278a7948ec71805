package server

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthLens/internal/domain/models"
	"GrowthLens/internal/service/ratelimit"
	"GrowthLens/internal/usecase"
	"GrowthLens/pkg/config"
	xhttp "GrowthLens/pkg/http"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, models.Report) (*models.ReportOutcome, error) {
	return &models.ReportOutcome{}, nil
}

func TestAppStartAndShutdown(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := xhttp.NewServer(nil, nil, xhttp.WithPort(0), xhttp.WithMetrics(false, reg, reg))
	sched := usecase.NewScheduler(noopRunner{}, []models.Report{{Name: "r", Schedule: "@daily"}}, 0, nil)
	app := New(cfg, nil, srv, sched, ratelimit.New(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, app.Start(ctx))
	_, ok := sched.Next("r")
	assert.True(t, ok)

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	assert.NoError(t, app.Shutdown(shutdownCtx))
}

func TestAppRunStopsOnContextCancel(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := xhttp.NewServer(nil, nil, xhttp.WithPort(0), xhttp.WithMetrics(false, reg, reg))
	app := New(cfg, nil, srv, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
