package device

import (
	"math"
)

type SourceType int

const (
	DC SourceType = iota
	SIN
	PULSE
	PWL
)

// Stimulus is the time function shared by independent voltage and current
// sources.
type Stimulus struct {
	Type SourceType

	dcValue float64
	dcGiven bool

	// SIN
	offset    float64
	amplitude float64
	freq      float64
	damping   float64
	phase     float64 // degrees

	// PULSE
	v1     float64
	v2     float64
	rise   float64
	fall   float64
	pWidth float64
	period float64

	// SIN and PULSE
	delay float64

	// PWL
	times  []float64
	values []float64

	acMag   float64
	acPhase float64 // degrees
}

func NewDCStimulus(value float64) *Stimulus {
	return &Stimulus{Type: DC, dcValue: value, dcGiven: true}
}

func NewSinStimulus(offset, amplitude, freq, delay, damping, phase float64) *Stimulus {
	return &Stimulus{
		Type:      SIN,
		offset:    offset,
		amplitude: amplitude,
		freq:      freq,
		delay:     delay,
		damping:   damping,
		phase:     phase,
	}
}

func NewPulseStimulus(v1, v2, delay, rise, fall, pWidth, period float64) *Stimulus {
	return &Stimulus{
		Type:   PULSE,
		v1:     v1,
		v2:     v2,
		delay:  delay,
		rise:   rise,
		fall:   fall,
		pWidth: pWidth,
		period: period,
	}
}

// NewPWLStimulus expects at least one point with non-decreasing times.
func NewPWLStimulus(times, values []float64) *Stimulus {
	return &Stimulus{Type: PWL, times: times, values: values}
}

func (s *Stimulus) SetDC(value float64) {
	s.dcValue = value
	s.dcGiven = true
}

func (s *Stimulus) SetAC(mag, phase float64) {
	s.acMag = mag
	s.acPhase = phase
}

// DCValue is the value used by operating point and DC sweep analyses. A
// source without an explicit DC value uses its time-zero value.
func (s *Stimulus) DCValue() float64 {
	if s.dcGiven || s.Type == DC {
		return s.dcValue
	}
	if s.Type == PULSE {
		return s.v1
	}
	return s.At(0)
}

// AC returns the small-signal phasor.
func (s *Stimulus) AC() (re, im float64) {
	phaseRad := s.acPhase * math.Pi / 180.0
	return s.acMag * math.Cos(phaseRad), s.acMag * math.Sin(phaseRad)
}

func (s *Stimulus) At(t float64) float64 {
	switch s.Type {
	case SIN:
		return s.sin(t)
	case PULSE:
		return s.pulse(t)
	case PWL:
		return s.pwl(t)
	default:
		return s.dcValue
	}
}

func (s *Stimulus) sin(t float64) float64 {
	phaseRad := s.phase * math.Pi / 180.0
	if t < s.delay {
		return s.offset + s.amplitude*math.Sin(phaseRad)
	}
	t -= s.delay
	return s.offset + s.amplitude*math.Exp(-t*s.damping)*math.Sin(2.0*math.Pi*s.freq*t+phaseRad)
}

func (s *Stimulus) pulse(t float64) float64 {
	if t < s.delay {
		return s.v1
	}

	t -= s.delay
	if s.period > 0 {
		t = math.Mod(t, s.period)
	}

	if t < s.rise {
		return s.v1 + (s.v2-s.v1)*t/s.rise
	}

	if t < s.rise+s.pWidth {
		return s.v2
	}

	fallStart := s.rise + s.pWidth
	if t < fallStart+s.fall {
		return s.v2 - (s.v2-s.v1)*(t-fallStart)/s.fall
	}

	return s.v1
}

func (s *Stimulus) pwl(t float64) float64 {
	if len(s.times) == 0 {
		return 0
	}
	if t <= s.times[0] {
		return s.values[0]
	}

	lastIdx := len(s.times) - 1
	if t >= s.times[lastIdx] {
		return s.values[lastIdx]
	}

	for i := 1; i < len(s.times); i++ {
		if t <= s.times[i] {
			t1, t2 := s.times[i-1], s.times[i]
			v1, v2 := s.values[i-1], s.values[i]
			if t2 == t1 {
				return v2
			}
			return v1 + (v2-v1)*(t-t1)/(t2-t1)
		}
	}

	return s.values[lastIdx]
}

// Breakpoints lists the corners of the stimulus inside (0, stop].
func (s *Stimulus) Breakpoints(stop float64) []float64 {
	var points []float64
	add := func(t float64) {
		if t > 0 && t <= stop {
			points = append(points, t)
		}
	}

	switch s.Type {
	case SIN:
		add(s.delay)
	case PULSE:
		edges := []float64{0, s.rise, s.rise + s.pWidth, s.rise + s.pWidth + s.fall}
		for base := s.delay; base <= stop; base += s.period {
			for _, e := range edges {
				add(base + e)
			}
			if s.period <= 0 {
				break
			}
		}
	case PWL:
		for _, t := range s.times {
			add(t)
		}
	}

	return points
}
