package repository

import (
	"context"
	"errors"

	"GrowthLens/internal/domain/models"
)

// TableSource yields raw tabular data for a query. Schema checks are the
// caller's job; sources only move rows.
type TableSource interface {
	Fetch(ctx context.Context, query string) (models.RawTable, error)
}

// ResultPublisher forwards finished prediction tables to downstream consumers.
type ResultPublisher interface {
	PublishLTV(ctx context.Context, report string, rows []models.LTVResult) error
	PublishMAU(ctx context.Context, report string, rows []models.MAUResult) error
	Close() error
}

// Notifier delivers a report summary with file attachments.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, body string, attachments []string) error
}

type Metrics interface {
	RecordPrediction(model string)
	RecordFitFallback(reason string)
	RecordRows(dataset string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// ErrDeliverySkipped is returned by a Notifier that is not configured to
// deliver. Callers treat it as a skip, not a failure.
var ErrDeliverySkipped = errors.New("delivery skipped")
