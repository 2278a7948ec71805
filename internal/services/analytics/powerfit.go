package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/sajari/regression"
	"gonum.org/v1/gonum/mat"

	"GrowthLens/internal/domain/models"
)

const (
	// DefaultMaxEvaluations bounds residual evaluations per fit.
	DefaultMaxEvaluations = 2000

	fitFTol      = 1.49012e-8
	fitXTol      = 1.49012e-8
	fitGTol      = 1e-15
	lambdaStart  = 1e-3
	lambdaFloor  = 1e-12
	lambdaCeil   = 1e16
	lambdaFactor = 10
)

// PowerLaw evaluates a * x^b.
func PowerLaw(x, a, b float64) float64 {
	return a * math.Pow(x, b)
}

// PowerLawFitter fits y ≈ a * x^b by unconstrained non-linear least squares
// (Levenberg–Marquardt with Marquardt diagonal scaling).
type PowerLawFitter struct {
	MaxEvaluations int
}

func NewPowerLawFitter(maxEvaluations int) *PowerLawFitter {
	if maxEvaluations <= 0 {
		maxEvaluations = DefaultMaxEvaluations
	}
	return &PowerLawFitter{MaxEvaluations: maxEvaluations}
}

type lmState struct {
	x, y  []float64
	evals int
}

func (s *lmState) cost(a, b float64) float64 {
	s.evals++
	sum := 0.0
	for i := range s.x {
		r := PowerLaw(s.x[i], a, b) - s.y[i]
		sum += r * r
	}
	return 0.5 * sum
}

// normal builds JᵀJ and Jᵀr at (a, b).
func (s *lmState) normal(a, b float64) (*mat.SymDense, *mat.VecDense) {
	jtj := mat.NewSymDense(2, nil)
	jtr := mat.NewVecDense(2, nil)
	var s00, s01, s11, g0, g1 float64
	for i := range s.x {
		xb := math.Pow(s.x[i], b)
		r := a*xb - s.y[i]
		da := xb
		db := a * xb * math.Log(s.x[i])
		s00 += da * da
		s01 += da * db
		s11 += db * db
		g0 += da * r
		g1 += db * r
	}
	jtj.SetSym(0, 0, s00)
	jtj.SetSym(0, 1, s01)
	jtj.SetSym(1, 1, s11)
	jtr.SetVec(0, g0)
	jtr.SetVec(1, g1)
	return jtj, jtr
}

// Fit returns the least-squares coefficients. Errors wrap ErrFitFailed.
func (f *PowerLawFitter) Fit(x, y []float64) (models.RetentionFitParams, error) {
	if len(x) != len(y) {
		return models.RetentionFitParams{}, fmt.Errorf("%w: %d x values for %d y values", ErrFitFailed, len(x), len(y))
	}
	if len(x) < 2 {
		return models.RetentionFitParams{}, errInsufficientFitData
	}
	for i := range x {
		if x[i] <= 0 || !finite(x[i]) || !finite(y[i]) {
			return models.RetentionFitParams{}, fmt.Errorf("%w: invalid point (%v, %v)", ErrFitFailed, x[i], y[i])
		}
	}

	maxEval := f.MaxEvaluations
	if maxEval <= 0 {
		maxEval = DefaultMaxEvaluations
	}

	st := &lmState{x: x, y: y}
	a, b := initialGuess(x, y)
	cost := st.cost(a, b)
	if !finite(cost) {
		a, b = 1, 1
		cost = st.cost(a, b)
	}
	lambda := lambdaStart

	jtj, jtr := st.normal(a, b)
	for {
		if cost == 0 || mat.Norm(jtr, math.Inf(1)) <= fitGTol {
			break
		}
		if st.evals >= maxEval {
			return models.RetentionFitParams{}, fmt.Errorf("%w: no convergence after %d evaluations", ErrFitFailed, st.evals)
		}

		damped := mat.NewDense(2, 2, nil)
		damped.Copy(jtj)
		for j := 0; j < 2; j++ {
			d := jtj.At(j, j)
			if d == 0 {
				d = 1
			}
			damped.Set(j, j, jtj.At(j, j)+lambda*d)
		}
		rhs := mat.NewVecDense(2, nil)
		rhs.ScaleVec(-1, jtr)

		var step mat.VecDense
		if !solveStep(&step, damped, rhs) {
			lambda *= lambdaFactor
			if lambda > lambdaCeil {
				return models.RetentionFitParams{}, fmt.Errorf("%w: singular normal equations", ErrFitFailed)
			}
			continue
		}

		stepNorm := math.Hypot(step.AtVec(0), step.AtVec(1))
		if stepNorm <= fitXTol*(math.Hypot(a, b)+fitXTol) {
			break
		}

		ta, tb := a+step.AtVec(0), b+step.AtVec(1)
		trial := st.cost(ta, tb)
		if finite(trial) && trial < cost {
			reduction := cost - trial
			prev := cost
			a, b, cost = ta, tb, trial
			lambda = math.Max(lambda/lambdaFactor, lambdaFloor)
			if reduction <= fitFTol*prev {
				break
			}
			jtj, jtr = st.normal(a, b)
			continue
		}

		lambda *= lambdaFactor
		if lambda > lambdaCeil {
			break
		}
	}

	if !finite(a) || !finite(b) {
		return models.RetentionFitParams{}, fmt.Errorf("%w: non-finite coefficients", ErrFitFailed)
	}
	return models.RetentionFitParams{A: a, B: b}, nil
}

// solveStep reports whether the damped system produced a usable step. An
// ill-conditioned system still yields a solution; only singular or
// non-finite results are rejected.
func solveStep(step *mat.VecDense, a mat.Matrix, b mat.Vector) bool {
	if err := step.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return false
		}
	}
	return finite(step.AtVec(0)) && finite(step.AtVec(1))
}

// initialGuess seeds the search with a log-log least-squares line when every
// target is positive and (1, 1) otherwise.
func initialGuess(x, y []float64) (float64, float64) {
	for _, v := range y {
		if v <= 0 {
			return 1, 1
		}
	}
	r := new(regression.Regression)
	r.SetObserved("ln_rr")
	r.SetVar(0, "ln_day")
	for i := range x {
		r.Train(regression.DataPoint(math.Log(y[i]), []float64{math.Log(x[i])}))
	}
	if err := r.Run(); err != nil {
		return 1, 1
	}
	a, b := math.Exp(r.Coeff(0)), r.Coeff(1)
	if !finite(a) || !finite(b) {
		return 1, 1
	}
	return a, b
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
