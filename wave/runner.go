package wave

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	ecs "github.com/forgeworks/ecscore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunnerOption configures a Runner at construction.
type RunnerOption func(*Runner)

// WithLogger installs a Logger, replacing the default noop logger.
func WithLogger(l Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithMaxConcurrency bounds how many systems within one wave may run at
// once. n <= 0 means unbounded (capped only by the wave's own size).
func WithMaxConcurrency(n int) RunnerOption {
	return func(r *Runner) { r.maxConcurrency = n }
}

// WithSystemTimeout sets the per-system execution timeout applied to every
// system the runner executes. Zero means no timeout.
func WithSystemTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.systemTimeout = d }
}

// WithWaveTimeout sets the per-wave timeout covering every system in that
// wave collectively. Zero means no timeout.
func WithWaveTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.waveTimeout = d }
}

// WithContinueOnFailure controls whether a failing system aborts the
// remaining systems in its wave (default) or lets siblings finish.
func WithContinueOnFailure(v bool) RunnerOption {
	return func(r *Runner) { r.continueOnFailure = v }
}

// Runner executes a Plan wave by wave, running the systems within one wave
// concurrently under a bounded semaphore (§4.8 "concurrency-limited
// execution"), grounded on the teacher corpus's errgroup+semaphore usage
// (other_examples garrensmith-frostdb/table.go) generalized from a fixed
// worker pool to the wave scheduler's own per-wave fan-out.
type Runner struct {
	logger             Logger
	maxConcurrency     int
	systemTimeout      time.Duration
	waveTimeout        time.Duration
	continueOnFailure  bool

	metrics Metrics
}

// NewRunner builds a Runner from opts, defaulting to an unbounded
// per-wave concurrency, the timeouts set by ecs.Config.SetDefaultTimeouts
// (none unless configured), a noop logger, and abort-on-failure.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: NewNoopLogger()}
	r.systemTimeout, r.waveTimeout = ecs.Config.DefaultTimeouts()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SystemResult captures one system's outcome within a tick.
type SystemResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Metrics aggregates per-session execution statistics (§4.8 step 3: total,
// successful, failed, average-per-wave, efficiency, bottleneck wave).
type Metrics struct {
	TicksRun        uint64
	SystemsRun      uint64
	SystemFailures  uint64
	WavesRun        uint64
	TotalWallTime   time.Duration
	TotalSystemTime time.Duration

	// BottleneckWave is the longest single wave wall time observed across
	// every Tick so far: the wave most worth optimizing.
	BottleneckWave time.Duration
}

// EfficiencyScore returns TotalSystemTime/TotalWallTime, the realized
// parallel speedup: 1.0 means no parallelism benefit observed, >1.0 means
// waves are overlapping work as intended. 0 if no wall time has been
// recorded yet. This is the dynamic, measured counterpart to a Plan's
// static Efficiency.
func (m Metrics) EfficiencyScore() float64 {
	if m.TotalWallTime == 0 {
		return 0
	}
	return float64(m.TotalSystemTime) / float64(m.TotalWallTime)
}

// AverageWaveTime returns TotalWallTime/WavesRun, or 0 if no wave has run.
func (m Metrics) AverageWaveTime() time.Duration {
	if m.WavesRun == 0 {
		return 0
	}
	return m.TotalWallTime / time.Duration(m.WavesRun)
}

// Metrics returns a copy of the runner's aggregate metrics.
func (r *Runner) Metrics() Metrics { return r.metrics }

// TickResult is the structured outcome of one Tick call (§4.8 step 3):
// whether the tick completed successfully, how long it took, the error (if
// any) that stopped it short, every system that was never started because
// its wave was aborted or cancelled, and the runner's metrics as of the end
// of this tick.
type TickResult struct {
	Success        bool
	ExecutionTime  time.Duration
	Error          error
	SkippedSystems []string
	Metrics        Metrics
	Results        []SystemResult
}

// Tick runs every wave of plan once, in order, against w. A wave's systems
// run concurrently under the configured concurrency bound; ctx cancellation
// or a wave/system timeout aborts remaining work in that wave. Systems in a
// wave that never started because the wave was already aborting are
// reported in SkippedSystems rather than as failed SystemResults.
func (r *Runner) Tick(ctx context.Context, w *ecs.World, plan Plan) TickResult {
	var all []SystemResult
	var skipped []string
	start := time.Now()
	var tickErr error

	for waveIdx, wave := range plan.Waves {
		waveStart := time.Now()
		results, waveSkipped, err := r.runWave(ctx, w, wave, waveIdx)
		waveDuration := time.Since(waveStart)
		if waveDuration > r.metrics.BottleneckWave {
			r.metrics.BottleneckWave = waveDuration
		}
		r.metrics.WavesRun++
		all = append(all, results...)
		skipped = append(skipped, waveSkipped...)
		if err != nil {
			tickErr = err
			// Waves after the one that just aborted never start at all;
			// every one of their systems is skipped, not attempted.
			for _, later := range plan.Waves[waveIdx+1:] {
				for _, s := range later.Systems {
					skipped = append(skipped, s.Name())
				}
			}
			break
		}
	}

	r.metrics.TicksRun++
	r.metrics.TotalWallTime += time.Since(start)

	return TickResult{
		Success:        tickErr == nil,
		ExecutionTime:  time.Since(start),
		Error:          tickErr,
		SkippedSystems: skipped,
		Metrics:        r.metrics,
		Results:        all,
	}
}

func (r *Runner) runWave(ctx context.Context, w *ecs.World, wave Wave, waveIdx int) ([]SystemResult, []string, error) {
	systems := wave.Systems
	waveCtx := ctx
	var cancel context.CancelFunc
	if r.waveTimeout > 0 {
		waveCtx, cancel = context.WithTimeout(ctx, r.waveTimeout)
		defer cancel()
	}

	limit := int64(len(systems))
	if r.maxConcurrency > 0 && int64(r.maxConcurrency) < limit {
		limit = int64(r.maxConcurrency)
	}
	sem := semaphore.NewWeighted(limit)

	results := make([]SystemResult, len(systems))
	ran := make([]bool, len(systems))
	var skipped []string
	var mu sync.Mutex
	var firstErr error

	g, gctx := errgroup.WithContext(waveCtx)
	for i, sys := range systems {
		i, sys := i, sys
		if err := sem.Acquire(gctx, 1); err != nil {
			// Context already cancelled or timed out before this system
			// ever started: it was skipped, not failed.
			mu.Lock()
			skipped = append(skipped, sys.Name())
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			res := r.runSystem(gctx, w, sys)
			mu.Lock()
			results[i] = res
			ran[i] = true
			r.metrics.TotalSystemTime += res.Duration
			mu.Unlock()
			atomic.AddUint64(&r.metrics.SystemsRun, 1)
			if res.Err != nil {
				atomic.AddUint64(&r.metrics.SystemFailures, 1)
				r.logger.Error("system failed", "wave", waveIdx, "system", sys.Name(), "err", res.Err)
				if !r.continueOnFailure {
					mu.Lock()
					if firstErr == nil {
						firstErr = res.Err
					}
					mu.Unlock()
					return res.Err
				}
			}
			return nil
		})
	}

	waitErr := g.Wait()
	completed := make([]SystemResult, 0, len(results))
	for i, res := range results {
		if ran[i] {
			completed = append(completed, res)
		}
	}
	results = completed
	if !r.continueOnFailure && waitErr != nil {
		return results, skipped, fmt.Errorf("wave %d: %w", waveIdx, waitErr)
	}
	if firstErr != nil && !r.continueOnFailure {
		return results, skipped, fmt.Errorf("wave %d: %w", waveIdx, firstErr)
	}
	return results, skipped, nil
}

func (r *Runner) runSystem(ctx context.Context, w *ecs.World, sys System) SystemResult {
	sysCtx := ctx
	var cancel context.CancelFunc
	if r.systemTimeout > 0 {
		sysCtx, cancel = context.WithTimeout(ctx, r.systemTimeout)
		defer cancel()
	}
	start := time.Now()
	err := sys.Run(sysCtx, w)
	return SystemResult{Name: sys.Name(), Duration: time.Since(start), Err: err}
}
