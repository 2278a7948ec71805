package metrics

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordPrediction(string)       {}
func (Noop) RecordFitFallback(string)      {}
func (Noop) RecordRows(string, int)        {}
func (Noop) RecordError(string)            {}
func (Noop) RecordLatency(string, float64) {}
func (Noop) RecordReport(string, bool)     {}
