package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

// ErrMismatch is wrapped by MismatchError.
var ErrMismatch = errors.New("parallel and sequential results differ")

// TaskError reports the failing task of a parallel map.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// MismatchError reports the first index where two result lists differ. A
// length mismatch reports the shorter length.
type MismatchError struct {
	Index int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v at index %d", ErrMismatch, e.Index)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Func is one independent simulation task.
type Func[I, O any] func(ctx context.Context, in I) (O, error)

// Map runs fn over inputs in order and stops at the first error.
func Map[I, O any](ctx context.Context, inputs []I, fn Func[I, O]) ([]O, error) {
	out := make([]O, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := fn(ctx, in)
		if err != nil {
			return nil, &TaskError{Index: i, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

// ParallelMap runs fn over inputs with at most workers tasks in flight
// (host parallelism when workers <= 0) and blocks until all finish.
// out[i] is fn(inputs[i]). The first failure cancels the remaining tasks and
// is returned as a *TaskError.
func ParallelMap[I, O any](ctx context.Context, inputs []I, fn Func[I, O], workers int) ([]O, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]O, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &TaskError{Index: i, Err: err}
			}
			v, err := fn(gctx, in)
			if err != nil {
				return &TaskError{Index: i, Err: err}
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Compare checks seq and par element by element.
func Compare[O any](seq, par []O, eq func(a, b O) bool) error {
	n := min(len(seq), len(par))
	for i := range n {
		if !eq(seq[i], par[i]) {
			return &MismatchError{Index: i}
		}
	}
	if len(seq) != len(par) {
		return &MismatchError{Index: n}
	}
	return nil
}

// Report summarizes a Benchmark run.
type Report struct {
	Tasks       int
	Workers     int
	Parallel    time.Duration
	Sequential  time.Duration
	Speedup     float64 // Sequential / Parallel, 0 when the parallel run failed
	ParallelErr error
}

func (r Report) String() string {
	if r.ParallelErr != nil {
		return fmt.Sprintf("%d tasks: parallel failed (%v), sequential %v", r.Tasks, r.ParallelErr, r.Sequential)
	}
	return fmt.Sprintf("%d tasks on %d workers: parallel %v, sequential %v, speedup %.2fx",
		r.Tasks, r.Workers, r.Parallel, r.Sequential, r.Speedup)
}

// Benchmark runs the sweep in parallel, then sequentially, and compares the
// two. A parallel failure is logged and recorded in the report; the
// sequential results are still returned. A mismatch is returned as an error.
func Benchmark[I, O any](ctx context.Context, inputs []I, fn Func[I, O], workers int, eq func(a, b O) bool) (Report, []O, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	report := Report{Tasks: len(inputs), Workers: workers}

	start := time.Now()
	par, perr := ParallelMap(ctx, inputs, fn, workers)
	report.Parallel = time.Since(start)
	if perr != nil {
		slog.Error("parallel sweep failed", "err", perr)
		report.ParallelErr = perr
	}
	slog.Info("parallel sweep", "tasks", len(inputs), "workers", workers, "elapsed", report.Parallel)

	start = time.Now()
	seq, err := Map(ctx, inputs, fn)
	report.Sequential = time.Since(start)
	if err != nil {
		return report, nil, err
	}
	slog.Info("sequential sweep", "tasks", len(inputs), "elapsed", report.Sequential)

	if perr != nil {
		return report, seq, nil
	}
	if report.Parallel > 0 {
		report.Speedup = float64(report.Sequential) / float64(report.Parallel)
	}
	if err := Compare(seq, par, eq); err != nil {
		return report, seq, err
	}
	return report, seq, nil
}

type Number interface {
	constraints.Integer | constraints.Float
}

// Arange returns start, start+step, ... up to but excluding stop, with
// ceil((stop-start)/step) values. A zero step or one pointing away from
// stop gives an empty slice.
func Arange[T Number](start, stop, step T) []T {
	if step == 0 {
		return nil
	}
	n := math.Ceil((float64(stop) - float64(start)) / float64(step))
	if n <= 0 || math.IsNaN(n) {
		return nil
	}
	out := make([]T, int(n))
	for i := range out {
		out[i] = start + T(i)*step
	}
	return out
}
