package circuit

import (
	"fmt"
	"strings"

	"github.com/edp1096/toy-spice-tutorials/pkg/device"
	"github.com/edp1096/toy-spice-tutorials/pkg/netlist"
)

func (c *Circuit) createDevice(elem *netlist.Element) (device.Device, error) {
	if len(elem.Nodes) != 2 {
		return nil, fmt.Errorf("%s needs 2 nodes, got %d", elem.Type, len(elem.Nodes))
	}

	switch elem.Type {
	case "R":
		r := device.NewResistor(elem.Name, elem.Nodes, elem.Value)
		params, err := elementParams(elem)
		if err != nil {
			return nil, err
		}
		r.SetModelParameters(params)
		return r, nil

	case "C":
		return device.NewCapacitor(elem.Name, elem.Nodes, elem.Value), nil

	case "L":
		return device.NewInductor(elem.Name, elem.Nodes, elem.Value), nil

	case "V":
		stimulus, err := newStimulus(elem.Source)
		if err != nil {
			return nil, err
		}
		return device.NewVoltageSource(elem.Name, elem.Nodes, stimulus), nil

	case "I":
		stimulus, err := newStimulus(elem.Source)
		if err != nil {
			return nil, err
		}
		return device.NewCurrentSource(elem.Name, elem.Nodes, stimulus), nil

	case "D":
		d := device.NewDiode(elem.Name, elem.Nodes)
		model, ok := c.Models[strings.ToLower(elem.Model)]
		if !ok {
			return nil, fmt.Errorf("diode model %q not found", elem.Model)
		}
		if !strings.EqualFold(model.Kind, "D") {
			return nil, fmt.Errorf("model %s is %s, not D", model.Name, model.Kind)
		}
		d.SetModelParameters(model.ParamMap())
		return d, nil
	}

	return nil, fmt.Errorf("unsupported device type: %s", elem.Type)
}

func elementParams(elem *netlist.Element) (map[string]float64, error) {
	params := make(map[string]float64, len(elem.Params))
	for key, raw := range elem.Params {
		value, err := netlist.ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
		params[strings.ToLower(key)] = value
	}
	return params, nil
}

func newStimulus(src *netlist.Source) (*device.Stimulus, error) {
	if src == nil {
		return device.NewDCStimulus(0), nil
	}

	var s *device.Stimulus
	switch src.Kind {
	case netlist.SourceDC:
		s = device.NewDCStimulus(src.DC)
	case netlist.SourceSin:
		o := src.Sin
		s = device.NewSinStimulus(o.Offset, o.Amplitude, o.Frequency, o.Delay, o.Damping, o.Phase)
	case netlist.SourcePulse:
		p := src.Pulse
		s = device.NewPulseStimulus(p.Initial, p.Pulsed, p.Delay, p.Rise, p.Fall, p.Width, p.Period)
	case netlist.SourcePWL:
		if len(src.PWL) == 0 {
			return nil, fmt.Errorf("PWL source without points")
		}
		times := make([]float64, len(src.PWL))
		values := make([]float64, len(src.PWL))
		for i, p := range src.PWL {
			times[i], values[i] = p.Time, p.Value
		}
		s = device.NewPWLStimulus(times, values)
	default:
		return nil, fmt.Errorf("unknown source kind %d", src.Kind)
	}

	if src.HasDC {
		s.SetDC(src.DC)
	}
	s.SetAC(src.ACMag, src.ACPhase)
	return s, nil
}
