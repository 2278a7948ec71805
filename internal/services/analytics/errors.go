package analytics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFitFailed marks a retention fit that did not produce usable coefficients.
// LTVService never returns it; it only drives the observed-retention fallback.
var ErrFitFailed = errors.New("retention fit failed")

// errInsufficientFitData is a FitFailure with a known, non-numerical cause.
var errInsufficientFitData = fmt.Errorf("%w: fewer than 2 usable points", ErrFitFailed)

// MissingColumnError rejects an input table that lacks required columns.
type MissingColumnError struct {
	Dataset string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required columns for %s: %s", e.Dataset, strings.Join(e.Columns, ", "))
}
