package analysis

import (
	"fmt"
	"slices"
)

// Analysis is anything that exposes node waveforms.
type Analysis[T Sample] interface {
	Nodes() *NodeSet[T]
}

// TimeAxis is implemented by results that may carry a time axis.
type TimeAxis[T Sample] interface {
	Time() Waveform[T]
	HasTime() bool
}

// FrequencyAxis is implemented by results that may carry a frequency axis.
type FrequencyAxis[T Sample] interface {
	Frequency() Waveform[T]
	HasFrequency() bool
}

const (
	TimeKey      = "time"
	FrequencyKey = "frequency"
)

// InvalidInputError is returned when the input is not a completed analysis.
type InvalidInputError struct {
	Got string
}

func (e *InvalidInputError) Error() string {
	if e.Got == "" {
		return "must pass a completed analysis"
	}
	return fmt.Sprintf("must pass a completed analysis, got %s", e.Got)
}

// Value is either a single sample or a sequence of samples.
type Value[T Sample] struct {
	scalar   T
	samples  Waveform[T]
	isScalar bool
}

func ScalarValue[T Sample](v T) Value[T] {
	return Value[T]{scalar: v, isScalar: true}
}

func SequenceValue[T Sample](w Waveform[T]) Value[T] {
	return Value[T]{samples: w}
}

func (v Value[T]) IsScalar() bool { return v.isScalar }

// Scalar returns the sample of a scalar value, the zero value otherwise.
func (v Value[T]) Scalar() T { return v.scalar }

// Samples returns the sequence, or a single-element slice for a scalar.
func (v Value[T]) Samples() Waveform[T] {
	if v.isScalar {
		return Waveform[T]{v.scalar}
	}
	return v.samples
}

func (v Value[T]) Len() int {
	if v.isScalar {
		return 1
	}
	return len(v.samples)
}

func (v Value[T]) Equal(o Value[T]) bool {
	if v.isScalar != o.isScalar {
		return false
	}
	if v.isScalar {
		return v.scalar == o.scalar
	}
	return slices.Equal(v.samples, o.samples)
}

// Any returns T for a scalar and []T for a sequence.
func (v Value[T]) Any() any {
	if v.isScalar {
		return v.scalar
	}
	return []T(v.samples)
}

// CastWaveform turns a one-sample waveform into a scalar and copies any
// other waveform into a new sequence.
func CastWaveform[T Sample](w Waveform[T]) Value[T] {
	if len(w) == 1 {
		return ScalarValue(w[0])
	}
	return SequenceValue(slices.Clone(w))
}

// Normalized maps identifiers to values in a stable order: nodes, then
// time, then frequency.
type Normalized[T Sample] struct {
	keys   []string
	values map[string]Value[T]
}

func newNormalized[T Sample](capacity int) *Normalized[T] {
	return &Normalized[T]{
		keys:   make([]string, 0, capacity),
		values: make(map[string]Value[T], capacity),
	}
}

func (n *Normalized[T]) put(key string, v Value[T]) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = v
}

func (n *Normalized[T]) Keys() []string {
	return slices.Clone(n.keys)
}

func (n *Normalized[T]) Get(key string) (Value[T], bool) {
	v, ok := n.values[key]
	return v, ok
}

func (n *Normalized[T]) Len() int {
	return len(n.keys)
}

// Map returns the values as T or []T keyed by identifier.
func (n *Normalized[T]) Map() map[string]any {
	out := make(map[string]any, len(n.keys))
	for _, k := range n.keys {
		out[k] = n.values[k].Any()
	}
	return out
}

// Equal compares keys, key order and values.
func (n *Normalized[T]) Equal(o *Normalized[T]) bool {
	if n == nil || o == nil {
		return n == o
	}
	if !slices.Equal(n.keys, o.keys) {
		return false
	}
	for _, k := range n.keys {
		if !n.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}

type normalizeOptions struct {
	cast      bool
	nodesOnly bool
}

type NormalizeOption func(*normalizeOptions)

// WithCast controls scalar/sequence casting. It is on by default.
func WithCast(cast bool) NormalizeOption {
	return func(o *normalizeOptions) { o.cast = cast }
}

// WithoutCast passes waveforms through unchanged.
func WithoutCast() NormalizeOption {
	return WithCast(false)
}

// NodesOnly leaves out the time and frequency axes.
func NodesOnly() NormalizeOption {
	return func(o *normalizeOptions) { o.nodesOnly = true }
}

// Normalize flattens an analysis into a map of node name to value, adding
// "time" and "frequency" when the analysis carries those axes. The input is
// not modified.
func Normalize[T Sample](a Analysis[T], opts ...NormalizeOption) (*Normalized[T], error) {
	if a == nil {
		return nil, &InvalidInputError{}
	}
	nodes := a.Nodes()
	if nodes == nil {
		return nil, &InvalidInputError{Got: fmt.Sprintf("%T without nodes", a)}
	}

	o := normalizeOptions{cast: true}
	for _, opt := range opts {
		opt(&o)
	}

	convert := func(w Waveform[T]) Value[T] {
		if o.cast {
			return CastWaveform(w)
		}
		return SequenceValue(w)
	}

	out := newNormalized[T](nodes.Len() + 2)
	for name, w := range nodes.All() {
		out.put(name, convert(w))
	}

	if o.nodesOnly {
		return out, nil
	}
	if ta, ok := a.(TimeAxis[T]); ok && ta.HasTime() {
		out.put(TimeKey, convert(ta.Time()))
	}
	if fa, ok := a.(FrequencyAxis[T]); ok && fa.HasFrequency() {
		out.put(FrequencyKey, convert(fa.Frequency()))
	}

	return out, nil
}

// Adapt checks at the boundary that v exposes node waveforms of sample type T.
func Adapt[T Sample](v any) (Analysis[T], error) {
	if v == nil {
		return nil, &InvalidInputError{}
	}
	a, ok := v.(Analysis[T])
	if !ok {
		return nil, &InvalidInputError{Got: fmt.Sprintf("%T", v)}
	}
	if a.Nodes() == nil {
		return nil, &InvalidInputError{Got: fmt.Sprintf("%T without nodes", v)}
	}
	return a, nil
}

// NormalizeAny is Normalize for values whose type is only known at run time.
func NormalizeAny[T Sample](v any, opts ...NormalizeOption) (*Normalized[T], error) {
	a, err := Adapt[T](v)
	if err != nil {
		return nil, err
	}
	return Normalize(a, opts...)
}
