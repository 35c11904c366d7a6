package forecast

import (
	"context"
	"math"

	apperrors "storepulse/internal/errors"
)

// Objective is a scalar function of the unconstrained parameter vector.
// Implementations must tolerate arbitrary inputs and return +Inf for
// regions where the model degenerates.
type Objective func(x []float64) float64

// Solution is the result of a minimization run
type Solution struct {
	X          []float64
	Value      float64
	GradNorm   float64
	Iterations int
	Converged  bool
}

// Minimizer searches for a local minimum of an objective from an initial
// point. The likelihood code depends only on this interface so the
// underlying algorithm is swappable.
type Minimizer interface {
	Minimize(ctx context.Context, obj Objective, init []float64) (Solution, error)
}

// LBFGS is a limited-memory quasi-Newton minimizer with numerical
// gradients and Armijo backtracking line search.
type LBFGS struct {
	MaxIterations int
	Tolerance     float64 // objective improvement stop
	GradTolerance float64 // gradient norm stop
	Memory        int     // history pairs for the two-loop recursion
}

// NewLBFGS returns a minimizer with the given stopping criteria
func NewLBFGS(maxIter int, tol, gradTol float64) *LBFGS {
	return &LBFGS{
		MaxIterations: maxIter,
		Tolerance:     tol,
		GradTolerance: gradTol,
		Memory:        8,
	}
}

const (
	armijoC1      = 1e-4
	armijoShrink  = 0.5
	maxLineSearch = 40
	fdStep        = 1e-6
)

// Minimize runs L-BFGS from init. Cancellation is cooperative: the context
// is checked once per iteration and the best point found so far is
// returned with Converged=false alongside the context error.
func (l *LBFGS) Minimize(ctx context.Context, obj Objective, init []float64) (Solution, error) {
	n := len(init)
	x := make([]float64, n)
	copy(x, init)

	fx := obj(x)
	if !isFinite(fx) {
		return Solution{X: x, Value: fx}, apperrors.ErrNonFiniteLikelihood.WithDetails(
			"objective not finite at the initial point")
	}
	grad := numericalGradient(obj, x, fx)

	mem := l.Memory
	if mem <= 0 {
		mem = 8
	}
	sHist := make([][]float64, 0, mem)
	yHist := make([][]float64, 0, mem)
	rhoHist := make([]float64, 0, mem)

	sol := Solution{X: x, Value: fx, GradNorm: norm2(grad)}

	for iter := 0; iter < l.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			sol.Iterations = iter
			return sol, err
		}

		gnorm := norm2(grad)
		if gnorm < l.GradTolerance {
			sol.Iterations = iter
			sol.Converged = true
			return sol, nil
		}

		dir := twoLoopDirection(grad, sHist, yHist, rhoHist)

		// direction must descend; fall back to steepest descent
		if dot(dir, grad) >= 0 {
			for i := range dir {
				dir[i] = -grad[i]
			}
		}

		step := 1.0
		if len(sHist) == 0 {
			// conservative first step scaled by the gradient
			step = 1.0 / math.Max(1.0, gnorm)
		}

		slope := dot(dir, grad)
		var xNew []float64
		var fNew float64
		accepted := false
		for ls := 0; ls < maxLineSearch; ls++ {
			xNew = axpy(x, dir, step)
			fNew = obj(xNew)
			if isFinite(fNew) && fNew <= fx+armijoC1*step*slope {
				accepted = true
				break
			}
			step *= armijoShrink
		}
		if !accepted {
			// no admissible step along this direction; stop at the
			// best point reached
			sol.Iterations = iter
			sol.Converged = sol.GradNorm < l.GradTolerance
			return sol, nil
		}

		gradNew := numericalGradient(obj, xNew, fNew)

		s := make([]float64, n)
		yv := make([]float64, n)
		for i := 0; i < n; i++ {
			s[i] = xNew[i] - x[i]
			yv[i] = gradNew[i] - grad[i]
		}
		if sy := dot(s, yv); sy > 1e-12 {
			if len(sHist) == mem {
				sHist = sHist[1:]
				yHist = yHist[1:]
				rhoHist = rhoHist[1:]
			}
			sHist = append(sHist, s)
			yHist = append(yHist, yv)
			rhoHist = append(rhoHist, 1/sy)
		}

		improvement := fx - fNew
		x, fx, grad = xNew, fNew, gradNew

		if fx < sol.Value {
			sol.X = x
			sol.Value = fx
			sol.GradNorm = norm2(grad)
		}
		sol.Iterations = iter + 1

		if improvement < l.Tolerance*(math.Abs(fx)+1) {
			sol.Converged = true
			return sol, nil
		}
	}

	// iteration budget exhausted
	sol.Converged = sol.GradNorm < l.GradTolerance
	return sol, nil
}

// twoLoopDirection computes the L-BFGS search direction -H·g
func twoLoopDirection(grad []float64, sHist, yHist [][]float64, rhoHist []float64) []float64 {
	n := len(grad)
	q := make([]float64, n)
	copy(q, grad)

	m := len(sHist)
	alpha := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		alpha[i] = rhoHist[i] * dot(sHist[i], q)
		for j := 0; j < n; j++ {
			q[j] -= alpha[i] * yHist[i][j]
		}
	}

	// initial Hessian scaling γ = s·y / y·y from the latest pair
	gamma := 1.0
	if m > 0 {
		last := m - 1
		yy := dot(yHist[last], yHist[last])
		if yy > 0 {
			gamma = dot(sHist[last], yHist[last]) / yy
		}
	}
	for j := 0; j < n; j++ {
		q[j] *= gamma
	}

	for i := 0; i < m; i++ {
		beta := rhoHist[i] * dot(yHist[i], q)
		for j := 0; j < n; j++ {
			q[j] += (alpha[i] - beta) * sHist[i][j]
		}
	}

	for j := 0; j < n; j++ {
		q[j] = -q[j]
	}
	return q
}

// numericalGradient computes a forward-difference gradient, reusing the
// already-evaluated objective value at x.
func numericalGradient(obj Objective, x []float64, fx float64) []float64 {
	grad := make([]float64, len(x))
	xh := make([]float64, len(x))
	copy(xh, x)
	for i := range x {
		h := fdStep * math.Max(1, math.Abs(x[i]))
		xh[i] = x[i] + h
		fh := obj(xh)
		xh[i] = x[i]
		if isFinite(fh) {
			grad[i] = (fh - fx) / h
		} else {
			// probe the other side when the forward step leaves the
			// admissible region
			xh[i] = x[i] - h
			fl := obj(xh)
			xh[i] = x[i]
			if isFinite(fl) {
				grad[i] = (fx - fl) / h
			}
		}
	}
	return grad
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func axpy(x, dir []float64, step float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] + step*dir[i]
	}
	return out
}
