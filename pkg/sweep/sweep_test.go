package sweep

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(_ context.Context, x int) (int, error) {
	return x * x, nil
}

func equal(a, b int) bool { return a == b }

func TestSequentialAndParallelAgree(t *testing.T) {
	ctx := context.Background()
	inputs := []int{1, 2, 3}

	seq, err := Map(ctx, inputs, square)
	require.NoError(t, err)
	par, err := ParallelMap(ctx, inputs, square, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 4, 9}, seq)
	assert.Equal(t, seq, par)
	assert.NoError(t, Compare(seq, par, equal))
}

func TestParallelMapOrderAndLimit(t *testing.T) {
	const workers = 3
	var inFlight, peak atomic.Int32

	inputs := make([]int, 20)
	for i := range inputs {
		inputs[i] = i
	}
	fn := func(_ context.Context, x int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// later inputs finish first
		time.Sleep(time.Duration(20-x) * time.Millisecond)
		inFlight.Add(-1)
		return x * 10, nil
	}

	out, err := ParallelMap(context.Background(), inputs, fn, workers)
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*10, v)
	}
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestParallelMapTaskError(t *testing.T) {
	boom := errors.New("no convergence")
	fn := func(_ context.Context, x int) (int, error) {
		if x == 2 {
			return 0, boom
		}
		return x, nil
	}

	_, err := ParallelMap(context.Background(), []int{1, 2, 3}, fn, 1)
	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
	assert.ErrorIs(t, err, boom)

	_, err = Map(context.Background(), []int{1, 2, 3}, fn)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
}

func TestCompare(t *testing.T) {
	err := Compare([]int{1, 2, 3}, []int{1, 5, 3}, equal)
	var me *MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 1, me.Index)
	assert.ErrorIs(t, err, ErrMismatch)

	err = Compare([]int{1, 2}, []int{1, 2, 3}, equal)
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 2, me.Index)
}

func TestBenchmark(t *testing.T) {
	report, out, err := Benchmark(context.Background(), []int{1, 2, 3, 4}, square, 2, equal)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16}, out)
	assert.Equal(t, 4, report.Tasks)
	assert.Equal(t, 2, report.Workers)
	assert.NoError(t, report.ParallelErr)
	assert.Contains(t, report.String(), "speedup")
}

func TestBenchmarkDetectsNondeterminism(t *testing.T) {
	var calls atomic.Int32
	fn := func(_ context.Context, x int) (int, error) {
		return x + int(calls.Add(1)), nil
	}
	_, _, err := Benchmark(context.Background(), []int{1, 2, 3}, fn, 2, equal)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestBenchmarkParallelFailure(t *testing.T) {
	var calls atomic.Int32
	fn := func(_ context.Context, x int) (int, error) {
		// the first three calls belong to the parallel run
		if calls.Add(1) <= 3 && x == 3 {
			return 0, errors.New("worker crashed")
		}
		return x, nil
	}
	report, out, err := Benchmark(context.Background(), []int{1, 2, 3}, fn, 3, equal)
	require.NoError(t, err)
	assert.Error(t, report.ParallelErr)
	assert.Zero(t, report.Speedup)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestArange(t *testing.T) {
	assert.Equal(t, []int{0, 2, 4}, Arange(0, 6, 2))
	assert.Equal(t, []int{5, 4, 3}, Arange(5, 2, -1))
	assert.Empty(t, Arange(0, 5, 0))
	assert.Empty(t, Arange(0, 5, -1))

	got := Arange(0.0, 1.0, 0.25)
	assert.Len(t, got, 4)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75}, got, 1e-12)

	r := Arange(100.0, 1000.0, 100.0)
	assert.Len(t, r, 9)
	assert.True(t, slices.IsSorted(r))
}
