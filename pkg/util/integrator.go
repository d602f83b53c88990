package util

import "math"

// MaxGearOrder is the highest BDF order the transient engine uses.
const MaxGearOrder = 2

type BackwardDifferentialFormula struct {
	coefficients []float64
	beta         float64
}

var BdfCoefficients = [MaxGearOrder]BackwardDifferentialFormula{
	{[]float64{1.0}, 1.0},
	{[]float64{4.0 / 3.0, -1.0 / 3.0}, 2.0 / 3.0},
}

// GetBDFcoeffs returns c such that dx/dt at step n is approximated by
// c[0]*x[n] + c[1]*x[n-1] + ... + c[order]*x[n-order] for a constant step dt.
func GetBDFcoeffs(order int, dt float64) []float64 {
	if order < 1 || order > len(BdfCoefficients) {
		order = 1
	}

	bdf := BdfCoefficients[order-1]
	coeffs := make([]float64, order+1)
	scale := 1.0 / (bdf.beta * dt)
	coeffs[0] = scale

	for i := 1; i <= order; i++ {
		coeffs[i] = -bdf.coefficients[i-1] * scale
	}

	return coeffs
}

// History holds the most recent accepted values of one state variable,
// newest first.
type History struct {
	values [MaxGearOrder]float64
	n      int
}

// Reset forgets everything but x.
func (h *History) Reset(x float64) {
	for i := range h.values {
		h.values[i] = x
	}
	h.n = 1
}

func (h *History) Push(x float64) {
	copy(h.values[1:], h.values[:len(h.values)-1])
	h.values[0] = x
	if h.n < len(h.values) {
		h.n++
	}
}

func (h *History) Len() int { return h.n }

func (h *History) Last() float64 { return h.values[0] }

// Companion linearizes dx/dt at the next step as geq*x + ieq. The order is
// capped by the available history.
func (h *History) Companion(order int, dt float64) (geq, ieq float64) {
	order = min(order, h.n, MaxGearOrder)
	if order < 1 {
		order = 1
	}
	coeffs := GetBDFcoeffs(order, dt)
	for i := 1; i <= order; i++ {
		ieq += coeffs[i] * h.values[i-1]
	}
	return coeffs[0], ieq
}

// PNJunctionLimit restricts the Newton update of a pn-junction voltage once
// it exceeds vcrit. It reports whether the value was changed.
func PNJunctionLimit(vnew, vold, vt, vcrit float64) (float64, bool) {
	if vnew <= vcrit || math.Abs(vnew-vold) <= 2*vt {
		return vnew, false
	}
	if vold > 0 {
		if arg := 1 + (vnew-vold)/vt; arg > 0 {
			return vold + vt*math.Log(arg), true
		}
		return vcrit, true
	}
	return vt * math.Log(vnew/vt), true
}
