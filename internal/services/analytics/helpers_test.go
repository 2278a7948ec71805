package analytics

import (
	"errors"
	"sync"

	"GrowthLens/internal/domain/models"
)

type recordingMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	fallbacks   map[string]int
	rows        map[string]int
	errors      map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		predictions: map[string]int{},
		fallbacks:   map[string]int{},
		rows:        map[string]int{},
		errors:      map[string]int{},
	}
}

func (m *recordingMetrics) RecordPrediction(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[model]++
}

func (m *recordingMetrics) RecordFitFallback(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[reason]++
}

func (m *recordingMetrics) RecordRows(dataset string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[dataset] = n
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type failingFitter struct{ calls int }

func (f *failingFitter) Fit(x, y []float64) (models.RetentionFitParams, error) {
	f.calls++
	return models.RetentionFitParams{}, errors.New("singular jacobian")
}

type panickingFitter struct{}

func (panickingFitter) Fit(x, y []float64) (models.RetentionFitParams, error) {
	panic("index out of range")
}

func retention(day int, rr, arpu float64) models.RetentionRow {
	return models.RetentionRow{NumDay: day, ActualRR: floatPtr(rr), ActualARPU: floatPtr(arpu)}
}
