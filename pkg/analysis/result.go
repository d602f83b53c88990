package analysis

import (
	"iter"
	"reflect"
	"slices"
	"strings"
)

// Sample is the value type of a waveform: real for OP, DC and transient
// results, complex for AC results.
type Sample interface {
	~float64 | ~complex128
}

// Waveform is an ordered sequence of samples.
type Waveform[T Sample] []T

type Kind int

const (
	KindOperatingPoint Kind = iota
	KindDC
	KindTransient
	KindAC
)

func (k Kind) String() string {
	switch k {
	case KindOperatingPoint:
		return "op"
	case KindDC:
		return "dc"
	case KindTransient:
		return "tran"
	case KindAC:
		return "ac"
	}
	return "unknown"
}

// NodeSet maps names to waveforms and keeps insertion order.
type NodeSet[T Sample] struct {
	names  []string
	index  map[string]int
	values []Waveform[T]
}

func NewNodeSet[T Sample]() *NodeSet[T] {
	return &NodeSet[T]{index: make(map[string]int)}
}

// Set adds or replaces a waveform.
func (s *NodeSet[T]) Set(name string, w Waveform[T]) {
	if i, ok := s.index[name]; ok {
		s.values[i] = w
		return
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	s.values = append(s.values, w)
}

// Append adds one sample to the named waveform, creating it if needed.
func (s *NodeSet[T]) Append(name string, v T) {
	i, ok := s.index[name]
	if !ok {
		s.Set(name, Waveform[T]{v})
		return
	}
	s.values[i] = append(s.values[i], v)
}

func (s *NodeSet[T]) Get(name string) (Waveform[T], bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.values[i], true
}

// Lookup is Get with a case-insensitive fallback.
func (s *NodeSet[T]) Lookup(name string) (Waveform[T], bool) {
	if w, ok := s.Get(name); ok {
		return w, true
	}
	for i, n := range s.names {
		if strings.EqualFold(n, name) {
			return s.values[i], true
		}
	}
	return nil, false
}

// Names returns a copy of the names in insertion order.
func (s *NodeSet[T]) Names() []string {
	return slices.Clone(s.names)
}

func (s *NodeSet[T]) Len() int {
	return len(s.names)
}

// All iterates in insertion order.
func (s *NodeSet[T]) All() iter.Seq2[string, Waveform[T]] {
	return func(yield func(string, Waveform[T]) bool) {
		for i, name := range s.names {
			if !yield(name, s.values[i]) {
				return
			}
		}
	}
}

// Result is a completed analysis.
type Result[T Sample] struct {
	kind         Kind
	title        string
	nodes        *NodeSet[T]
	branches     *NodeSet[T]
	time         Waveform[T]
	frequency    Waveform[T]
	sweep        Waveform[T]
	sweepName    string
	hasTime      bool
	hasFrequency bool
}

func NewResult[T Sample](kind Kind, title string) *Result[T] {
	return &Result[T]{
		kind:     kind,
		title:    title,
		nodes:    NewNodeSet[T](),
		branches: NewNodeSet[T](),
	}
}

func (r *Result[T]) Kind() Kind { return r.kind }

func (r *Result[T]) Title() string { return r.title }

// Nodes returns nil for a nil result.
func (r *Result[T]) Nodes() *NodeSet[T] {
	if r == nil {
		return nil
	}
	return r.nodes
}

// Branches holds voltage source and inductor currents.
func (r *Result[T]) Branches() *NodeSet[T] { return r.branches }

func (r *Result[T]) Time() Waveform[T] { return r.time }

func (r *Result[T]) HasTime() bool { return r != nil && r.hasTime }

func (r *Result[T]) Frequency() Waveform[T] { return r.frequency }

func (r *Result[T]) HasFrequency() bool { return r != nil && r.hasFrequency }

// Sweep returns the swept source values of a DC analysis.
func (r *Result[T]) Sweep() Waveform[T] { return r.sweep }

func (r *Result[T]) SweepName() string { return r.sweepName }

func (r *Result[T]) SetTime(w Waveform[T]) {
	r.time, r.hasTime = w, true
}

func (r *Result[T]) SetFrequency(w Waveform[T]) {
	r.frequency, r.hasFrequency = w, true
}

func (r *Result[T]) SetSweep(name string, w Waveform[T]) {
	r.sweepName, r.sweep = name, w
}

// Node is a shorthand for Nodes().Lookup.
func (r *Result[T]) Node(name string) Waveform[T] {
	w, _ := r.nodes.Lookup(name)
	return w
}

// Branch is a shorthand for Branches().Lookup.
func (r *Result[T]) Branch(name string) Waveform[T] {
	w, _ := r.branches.Lookup(name)
	return w
}

// Real returns the real parts of a waveform.
func Real[T Sample](w Waveform[T]) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = real(ToComplex(v))
	}
	return out
}

// ToComplex widens a sample to complex128.
func ToComplex[T Sample](v T) complex128 {
	switch x := any(v).(type) {
	case float64:
		return complex(x, 0)
	case complex128:
		return x
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Float64 {
		return complex(rv.Float(), 0)
	}
	return rv.Complex()
}

// Normalize is Normalize applied to the result.
func (r *Result[T]) Normalize(opts ...NormalizeOption) (*Normalized[T], error) {
	return Normalize[T](r, opts...)
}
