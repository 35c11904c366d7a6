package forecast

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "storepulse/internal/errors"
)

// maxLogMean bounds the log conditional mean during the recursion; a
// candidate whose recursion leaves this band is treated as degenerate.
const maxLogMean = 30.0

// Estimator fits NB-INGARCH parameters by maximum likelihood. It is
// stateless across Fit calls: every fit operates on its own copies and
// returns a fresh immutable ModelParameters value, so one Estimator may
// serve concurrent callers.
type Estimator struct {
	cfg    FitConfig
	min    Minimizer
	logger *slog.Logger
}

// NewEstimator creates an estimator with an L-BFGS minimizer built from
// the fit configuration.
func NewEstimator(cfg FitConfig, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{
		cfg:    cfg,
		min:    NewLBFGS(cfg.MaxIterations, cfg.Tolerance, cfg.GradTolerance),
		logger: logger,
	}
}

// SetMinimizer swaps the numerical minimizer. Intended for tests and for
// callers with their own optimization backend.
func (e *Estimator) SetMinimizer(m Minimizer) { e.min = m }

// Fit estimates model parameters from an ordered history.
//
// The likelihood is the sum of NB log-probabilities over the full
// recursive λ sequence, minimized over the unconstrained vector
// (β0, β, α, γ, log φ). The search runs Restarts times in parallel: one
// start from the moment-based initial point and the rest from seed-derived
// perturbations of it, so repeated fits on identical data reproduce the
// same log-likelihood.
//
// Cancellation is cooperative. When ctx is cancelled mid-search, Fit
// returns the best parameters found so far with Converged=false; it
// returns ErrTrainingCancelled only when no usable point was reached.
func (e *Estimator) Fit(ctx context.Context, history []VisitRecord) (*ModelParameters, *Diagnostics, error) {
	started := time.Now()

	cfg := e.cfg
	cfg.Features = cfg.Features.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	rows, err := BuildFeatures(history, cfg.Features)
	if err != nil {
		return nil, nil, err
	}

	p, q := cfg.Features.P, cfg.Features.Q
	dims := len(rows[0].Exog)

	mean, variance := sampleMoments(rows)
	seedMean := math.Max(mean, LambdaFloor)
	seedLog := math.Log(seedMean)

	e.logger.InfoContext(ctx, "training started",
		"mode", string(cfg.Features.Mode),
		"rows", len(rows),
		"p", p, "q", q,
		"window", describeWindow(history))

	obj := nllObjective(rows, p, q, seedLog)
	init := initialPoint(p, q, dims, mean, variance)

	sols := make([]Solution, cfg.Restarts)
	errs := make([]error, cfg.Restarts)

	g, gctx := errgroup.WithContext(ctx)
	for r := 0; r < cfg.Restarts; r++ {
		g.Go(func() error {
			start := init
			if r > 0 {
				start = perturb(init, cfg.Seed+int64(r))
			}
			sols[r], errs[r] = e.min.Minimize(gctx, obj, start)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	best := -1
	for r := range sols {
		if errs[r] != nil && !isCancellation(errs[r]) {
			continue
		}
		if len(sols[r].X) == 0 || !isFinite(sols[r].Value) {
			continue
		}
		if best < 0 || sols[r].Value < sols[best].Value {
			best = r
		}
	}

	cancelled := ctx.Err() != nil
	if best < 0 {
		if cancelled {
			return nil, nil, apperrors.ErrTrainingCancelled
		}
		for r := range errs {
			if errs[r] != nil {
				return nil, nil, apperrors.ErrOptimizerFailed.Wrap(errs[r])
			}
		}
		return nil, nil, apperrors.ErrOptimizerFailed.WithDetails(
			"no restart reached a finite likelihood")
	}

	sol := sols[best]
	ll := -sol.Value
	if !isFinite(ll) {
		return nil, nil, apperrors.ErrNonFiniteLikelihood
	}

	params := unpackParams(sol.X, p, q, dims)
	params.Mode = cfg.Features.Mode
	params.Link = "log"
	params.SeedMean = seedMean
	params.EncodingVersion = cfg.Features.Encoding.Version
	params.TrainedAt = time.Now().UTC()
	params.TrainedRecordCount = len(history)

	k := params.NumParams()
	n := float64(len(rows))
	diag := Diagnostics{
		LogLikelihood: ll,
		AIC:           2*float64(k) - 2*ll,
		BIC:           float64(k)*math.Log(n) - 2*ll,
		Converged:     sol.Converged && !cancelled,
		Iterations:    sol.Iterations,
		Restarts:      cfg.Restarts,
		Elapsed:       time.Since(started),
	}
	params.Diagnostics = diag

	e.logger.InfoContext(ctx, "training finished",
		"mode", string(params.Mode),
		"log_likelihood", diag.LogLikelihood,
		"aic", diag.AIC,
		"converged", diag.Converged,
		"iterations", diag.Iterations,
		"elapsed", diag.Elapsed.String())

	return params, &diag, nil
}

// nllObjective builds the negative log-likelihood over the recursive λ
// sequence. The λ lags are filled from a mutable per-call array as the
// recursion advances; pre-sample lags use the training-window mean.
func nllObjective(rows []FeatureRow, p, q int, seedLog float64) Objective {
	n := len(rows)
	return func(x []float64) float64 {
		beta0 := x[0]
		beta := x[1 : 1+p]
		alpha := x[1+p : 1+p+q]
		gamma := x[1+p+q : len(x)-1]
		phi := math.Exp(x[len(x)-1])
		if !isFinite(phi) || phi <= 0 {
			return math.Inf(1)
		}

		logLam := make([]float64, n)
		var nll float64
		for t := 0; t < n; t++ {
			lm := beta0
			for i, b := range beta {
				lm += b * rows[t].LagCounts[i]
			}
			for j := 1; j <= q; j++ {
				if t-j >= 0 {
					lm += alpha[j-1] * logLam[t-j]
				} else {
					lm += alpha[j-1] * seedLog
				}
			}
			for i, g := range gamma {
				lm += g * rows[t].Exog[i]
			}
			if !isFinite(lm) || math.Abs(lm) > maxLogMean {
				return math.Inf(1)
			}
			logLam[t] = lm

			lp := nbLogPMF(rows[t].Count, math.Exp(lm), phi)
			if !isFinite(lp) {
				return math.Inf(1)
			}
			nll -= lp
		}
		return nll
	}
}

// initialPoint builds the deterministic start: zero coefficients with the
// intercept at the log sample mean, and dispersion from the method of
// moments (φ = mean²/(var−mean), clamped).
func initialPoint(p, q, dims int, mean, variance float64) []float64 {
	x := make([]float64, 1+p+q+dims+1)
	x[0] = math.Log(math.Max(mean, LambdaFloor))

	excess := math.Max(variance-mean, 0.1*mean)
	phi0 := mean * mean / excess
	phi0 = math.Min(math.Max(phi0, 0.5), 1e4)
	x[len(x)-1] = math.Log(phi0)
	return x
}

// perturb returns a seed-derived random perturbation of the initial point
func perturb(init []float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, len(init))
	for i := range init {
		scale := 0.05
		if i == len(init)-1 {
			scale = 0.3 // log-dispersion tolerates a wider spread
		}
		out[i] = init[i] + scale*rng.NormFloat64()
	}
	return out
}

// unpackParams splits the unconstrained vector back into model parameters
func unpackParams(x []float64, p, q, dims int) *ModelParameters {
	params := &ModelParameters{
		P:          p,
		Q:          q,
		Intercept:  x[0],
		AR:         append([]float64(nil), x[1:1+p]...),
		Feedback:   append([]float64(nil), x[1+p:1+p+q]...),
		Exog:       append([]float64(nil), x[1+p+q:len(x)-1]...),
		Dispersion: math.Exp(x[len(x)-1]),
	}
	return params
}

// sampleMoments returns the mean and variance of the target counts
func sampleMoments(rows []FeatureRow) (mean, variance float64) {
	n := float64(len(rows))
	for _, r := range rows {
		mean += r.Count
	}
	mean /= n
	for _, r := range rows {
		d := r.Count - mean
		variance += d * d
	}
	if n > 1 {
		variance /= n - 1
	}
	return mean, variance
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
