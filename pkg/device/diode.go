package device

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-spice-tutorials/internal/consts"
	"github.com/edp1096/toy-spice-tutorials/pkg/matrix"
	"github.com/edp1096/toy-spice-tutorials/pkg/util"
)

const maxExpArg = 80.0

type Diode struct {
	BaseDevice
	// Model parameters
	Is   float64 // Saturation current
	N    float64 // Emission coefficient
	Rs   float64 // Series resistance, not modelled
	Cj0  float64 // Zero-bias junction capacitance
	M    float64 // Grading coefficient
	Vj   float64 // Built-in potential
	Bv   float64 // Breakdown voltage, 0 disables breakdown
	Ibv  float64 // Current at breakdown voltage
	Gmin float64 // Minimum conductance

	// Temperature parameters
	Eg  float64 // Energy gap (eV)
	Xti float64 // Saturation current temperature exponent
	Tt  float64 // Transit time
	Fc  float64 // Forward-bias depletion capacitance coefficient

	// Operating point
	vd      float64
	id      float64
	gd      float64
	nvt     float64
	vcrit   float64
	limited bool

	// Junction charge for transient analysis
	charge util.History
	qd     float64
	cd     float64
}

var (
	_ NonLinear     = (*Diode)(nil)
	_ TimeDependent = (*Diode)(nil)
)

func NewDiode(name string, nodeNames []string) *Diode {
	d := &Diode{BaseDevice: newBaseDevice(name, 0, nodeNames)}
	d.setDefaultParameters()
	return d
}

func (d *Diode) GetType() string { return "D" }

func (d *Diode) setDefaultParameters() {
	d.Is = 1e-14
	d.N = 1.0
	d.Rs = 0.0
	d.Cj0 = 0.0
	d.M = 0.5
	d.Vj = 1.0
	d.Bv = 0.0
	d.Ibv = 1e-3
	d.Gmin = consts.DefaultGmin

	d.Eg = 1.11 // Silicon bandgap
	d.Xti = 3.0
	d.Tt = 0.0
	d.Fc = 0.5
}

func (d *Diode) SetModelParameters(params map[string]float64) {
	set := func(key string, dst *float64) {
		if v, ok := params[key]; ok {
			*dst = v
		}
	}
	set("is", &d.Is)
	set("n", &d.N)
	set("rs", &d.Rs)
	set("cjo", &d.Cj0)
	set("cj0", &d.Cj0)
	set("m", &d.M)
	set("vj", &d.Vj)
	set("bv", &d.Bv)
	set("ibv", &d.Ibv)
	set("eg", &d.Eg)
	set("xti", &d.Xti)
	set("tt", &d.Tt)
	set("fc", &d.Fc)
}

// temperatureAdjustedIs scales IS from tnom to temp (both K):
// is(T) = is(Tnom) * (T/Tnom)^(XTI/N) * exp((T/Tnom - 1) * Eg / (N*Vt(T))).
func (d *Diode) temperatureAdjustedIs(temp, tnom float64) float64 {
	if temp <= 0 || tnom <= 0 || temp == tnom {
		return d.Is
	}
	vt := consts.ThermalVoltage(temp)
	ratio := temp / tnom
	return d.Is * math.Pow(ratio, d.Xti/d.N) * math.Exp((ratio-1)*d.Eg/(d.N*vt))
}

func (d *Diode) breakdownVoltage(is, nvt float64) float64 {
	if d.Bv <= 0 {
		return math.Inf(1)
	}
	if d.Ibv > is {
		if xbv := d.Bv - nvt*math.Log(1+d.Ibv/is); xbv > 0 {
			return xbv
		}
	}
	return d.Bv
}

func limitedExp(arg float64) float64 {
	if arg > maxExpArg {
		return math.Exp(maxExpArg) * (1 + arg - maxExpArg)
	}
	return math.Exp(arg)
}

// evaluate returns the static current and conductance at vd.
func (d *Diode) evaluate(vd float64, status *CircuitStatus) (id, gd float64) {
	is := d.temperatureAdjustedIs(status.Temp, status.Tnom)
	nvt := d.N * consts.ThermalVoltage(status.Temp)
	gmin := max(d.Gmin, status.Gmin)
	xbv := d.breakdownVoltage(is, nvt)

	switch {
	case vd >= -3.0*nvt:
		evd := limitedExp(vd / nvt)
		id = is*(evd-1.0) + gmin*vd
		gd = is*evd/nvt + gmin
		if vd/nvt > maxExpArg {
			gd = is*math.Exp(maxExpArg)/nvt + gmin
		}
	case vd >= -xbv:
		arg := 3.0 * nvt / (vd * math.E)
		arg = arg * arg * arg
		id = -is*(1.0+arg) + gmin*vd
		gd = is*3.0*arg/vd + gmin
	default:
		evrev := limitedExp(-(xbv + vd) / nvt)
		id = -is*evrev + gmin*vd
		gd = is*evrev/nvt + gmin
	}

	return id, gd
}

// junctionCharge returns the depletion plus diffusion charge and its
// derivative at vd.
func (d *Diode) junctionCharge(vd, id, gd float64) (q, c float64) {
	if d.Cj0 > 0 {
		fcv := d.Fc * d.Vj
		if vd < fcv {
			arg := 1 - vd/d.Vj
			sarg := math.Pow(arg, -d.M)
			q = d.Cj0 * d.Vj * (1 - arg*sarg) / (1 - d.M)
			c = d.Cj0 * sarg
		} else {
			f1 := d.Vj * (1 - math.Pow(1-d.Fc, 1-d.M)) / (1 - d.M)
			f2 := math.Pow(1-d.Fc, 1+d.M)
			f3 := 1 - d.Fc*(1+d.M)
			q = d.Cj0*f1 + d.Cj0/f2*(f3*(vd-fcv)+d.M/(2*d.Vj)*(vd*vd-fcv*fcv))
			c = d.Cj0 / f2 * (f3 + d.M*vd/d.Vj)
		}
	}
	q += d.Tt * id
	c += d.Tt * gd
	return q, c
}

func (d *Diode) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(d.Nodes) != 2 {
		return fmt.Errorf("diode %s: requires exactly 2 nodes", d.Name)
	}
	if status.Mode == ACAnalysis {
		return d.StampAC(matrix, status)
	}

	n1, n2 := d.Nodes[0], d.Nodes[1]

	d.id, d.gd = d.evaluate(d.vd, status)
	d.nvt = d.N * consts.ThermalVoltage(status.Temp)
	d.vcrit = d.nvt * math.Log(d.nvt/(math.Sqrt2*d.temperatureAdjustedIs(status.Temp, status.Tnom)))
	d.qd, d.cd = d.junctionCharge(d.vd, d.id, d.gd)

	g, ieq := d.gd, d.id-d.gd*d.vd
	if status.Mode == TransientAnalysis && d.cd > 0 {
		// ic = dq/dt ~ geq*q + hist, linearized around vd
		geq, hist := d.charge.Companion(status.Order, status.TimeStep)
		gc := geq * d.cd
		ic := geq*d.qd + hist
		g += gc
		ieq += ic - gc*d.vd
	}

	stampConductance(matrix, n1, n2, g)
	stampCurrent(matrix, n1, n2, ieq)

	return nil
}

// StampAC linearizes the diode around the last operating point.
func (d *Diode) StampAC(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	n1, n2 := d.Nodes[0], d.Nodes[1]
	omega := 2 * math.Pi * status.Frequency
	stampAdmittance(matrix, n1, n2, d.gd, omega*d.cd)
	return nil
}

func (d *Diode) UpdateVoltages(voltages []float64) error {
	if len(d.Nodes) != 2 {
		return fmt.Errorf("diode %s: requires exactly 2 nodes", d.Name)
	}

	vnew := voltageAcross(voltages, d.Nodes[0], d.Nodes[1])
	d.vd, d.limited = d.limitJunction(vnew, d.vd)
	return nil
}

func (d *Diode) Limited() bool { return d.limited }

// limitJunction damps large forward steps of the junction voltage so the
// exponential stays within reach of Newton's method.
func (d *Diode) limitJunction(vnew, vold float64) (float64, bool) {
	if d.nvt == 0 {
		return vnew, false
	}
	return util.PNJunctionLimit(vnew, vold, d.nvt, d.vcrit)
}

func (d *Diode) InitState(solution []float64) {
	d.charge.Reset(d.qd)
}

func (d *Diode) AcceptStep(solution []float64) {
	d.charge.Push(d.qd)
}

func (d *Diode) Voltage() float64 { return d.vd }

func (d *Diode) Current() float64 { return d.id }

func (d *Diode) Conductance() float64 { return d.gd }
