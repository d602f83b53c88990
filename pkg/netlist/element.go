package netlist

import (
	"fmt"
	"strings"
)

// Gnd is the ground node.
const Gnd = "0"

// N names a node by number.
func N(node int) string {
	return fmt.Sprint(node)
}

// IsGround reports whether the node is the ground reference.
func IsGround(node string) bool {
	return node == Gnd || strings.EqualFold(node, "gnd")
}

type SourceKind int

const (
	SourceDC SourceKind = iota
	SourceSin
	SourcePulse
	SourcePWL
)

type SinusoidalOptions struct {
	Offset      float64
	Amplitude   float64
	Frequency   float64
	Delay       float64
	Damping     float64
	Phase       float64 // degrees
	ACMagnitude float64
}

type PulseOptions struct {
	Initial float64
	Pulsed  float64
	Delay   float64
	Rise    float64
	Fall    float64
	Width   float64
	Period  float64
}

type PWLPoint struct {
	Time  float64
	Value float64
}

// Source describes the value of an independent V or I element.
type Source struct {
	Kind    SourceKind
	DC      float64
	HasDC   bool
	ACMag   float64
	ACPhase float64
	Sin     SinusoidalOptions
	Pulse   PulseOptions
	PWL     []PWLPoint
}

func (s *Source) String() string {
	var parts []string
	if s.HasDC || s.Kind == SourceDC {
		parts = append(parts, "DC "+FormatValue(s.DC))
	}
	if s.ACMag != 0 {
		ac := "AC " + FormatValue(s.ACMag)
		if s.ACPhase != 0 {
			ac += " " + FormatValue(s.ACPhase)
		}
		parts = append(parts, ac)
	}

	switch s.Kind {
	case SourceSin:
		o := s.Sin
		args := []float64{o.Offset, o.Amplitude, o.Frequency, o.Delay, o.Damping}
		if o.Phase != 0 {
			args = append(args, o.Phase)
		}
		parts = append(parts, "SIN("+joinValues(args)+")")
	case SourcePulse:
		p := s.Pulse
		parts = append(parts, "PULSE("+joinValues([]float64{p.Initial, p.Pulsed, p.Delay, p.Rise, p.Fall, p.Width, p.Period})+")")
	case SourcePWL:
		args := make([]float64, 0, 2*len(s.PWL))
		for _, p := range s.PWL {
			args = append(args, p.Time, p.Value)
		}
		parts = append(parts, "PWL("+joinValues(args)+")")
	}

	return strings.Join(parts, " ")
}

func joinValues(values []float64) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = FormatValue(v)
	}
	return strings.Join(s, " ")
}

type Element struct {
	Type   string            // R, C, L, V, I, D, X
	Name   string            // Full name, starts with Type
	Nodes  []string          // Node names
	Value  float64           // R, C, L value
	Model  string            // Diode model or sub-circuit name
	Source *Source           // V and I only
	Params map[string]string // Extra name=value parameters
}

func (e *Element) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	for _, n := range e.Nodes {
		b.WriteByte(' ')
		b.WriteString(n)
	}

	switch e.Type {
	case "R", "C", "L":
		b.WriteByte(' ')
		b.WriteString(FormatValue(e.Value))
	case "V", "I":
		if e.Source != nil {
			b.WriteByte(' ')
			b.WriteString(e.Source.String())
		}
	case "D", "X":
		b.WriteByte(' ')
		b.WriteString(e.Model)
	}

	for _, key := range sortedKeys(e.Params) {
		fmt.Fprintf(&b, " %s=%s", key, e.Params[key])
	}

	return b.String()
}

func (e *Element) clone() *Element {
	c := *e
	c.Nodes = append([]string(nil), e.Nodes...)
	if e.Source != nil {
		src := *e.Source
		src.PWL = append([]PWLPoint(nil), e.Source.PWL...)
		c.Source = &src
	}
	if e.Params != nil {
		c.Params = make(map[string]string, len(e.Params))
		for k, v := range e.Params {
			c.Params[k] = v
		}
	}
	return &c
}

type ModelParam struct {
	Name  string
	Value float64
}

// Model is a .model card. Parameter order is kept for rendering.
type Model struct {
	Name   string
	Kind   string
	Params []ModelParam
}

func (m *Model) String() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = fmt.Sprintf("%s=%s", p.Name, FormatValue(p.Value))
	}
	return fmt.Sprintf(".model %s %s (%s)", m.Name, m.Kind, strings.Join(params, " "))
}

// ParamMap returns the parameters keyed by lower-case name.
func (m *Model) ParamMap() map[string]float64 {
	params := make(map[string]float64, len(m.Params))
	for _, p := range m.Params {
		params[strings.ToLower(p.Name)] = p.Value
	}
	return params
}
