package netlist

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var ErrDuplicateElement = errors.New("duplicate element name")

// elements is the element list shared by circuits and sub-circuits.
type elements struct {
	list  []*Element
	names map[string]struct{}
	err   error
}

func (b *elements) add(typ, name string, nodes []string, fill func(*Element)) *Element {
	if b.names == nil {
		b.names = make(map[string]struct{})
	}

	elem := &Element{
		Type:  typ,
		Name:  elementName(typ, name),
		Nodes: nodes,
	}
	if fill != nil {
		fill(elem)
	}

	key := strings.ToLower(elem.Name)
	if _, exists := b.names[key]; exists && b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateElement, elem.Name)
	}
	b.names[key] = struct{}{}
	b.list = append(b.list, elem)

	return elem
}

// elementName prefixes a bare name with the element letter: "1" -> "R1".
func elementName(typ, name string) string {
	if len(name) > 0 && strings.EqualFold(name[:1], typ) {
		return name
	}
	return typ + name
}

func (b *elements) R(name, n1, n2 string, ohms float64) *Element {
	return b.add("R", name, []string{n1, n2}, func(e *Element) { e.Value = ohms })
}

func (b *elements) C(name, n1, n2 string, farads float64) *Element {
	return b.add("C", name, []string{n1, n2}, func(e *Element) { e.Value = farads })
}

func (b *elements) L(name, n1, n2 string, henries float64) *Element {
	return b.add("L", name, []string{n1, n2}, func(e *Element) { e.Value = henries })
}

func (b *elements) D(name, anode, cathode, model string) *Element {
	return b.add("D", name, []string{anode, cathode}, func(e *Element) { e.Model = model })
}

// X instantiates the sub-circuit named subckt.
func (b *elements) X(name, subckt string, nodes ...string) *Element {
	return b.add("X", name, nodes, func(e *Element) { e.Model = subckt })
}

func (b *elements) V(name, pos, neg string, dc float64) *Element {
	return b.add("V", name, []string{pos, neg}, func(e *Element) {
		e.Source = &Source{Kind: SourceDC, DC: dc, HasDC: true}
	})
}

func (b *elements) I(name, pos, neg string, dc float64) *Element {
	return b.add("I", name, []string{pos, neg}, func(e *Element) {
		e.Source = &Source{Kind: SourceDC, DC: dc, HasDC: true}
	})
}

// SinusoidalVoltageSource renders as "DC offset AC mag SIN(...)".
func (b *elements) SinusoidalVoltageSource(name, pos, neg string, opts SinusoidalOptions) *Element {
	return b.add("V", name, []string{pos, neg}, func(e *Element) {
		e.Source = &Source{
			Kind:  SourceSin,
			DC:    opts.Offset,
			HasDC: true,
			ACMag: opts.ACMagnitude,
			Sin:   opts,
		}
	})
}

func (b *elements) PulseVoltageSource(name, pos, neg string, opts PulseOptions) *Element {
	return b.add("V", name, []string{pos, neg}, func(e *Element) {
		e.Source = &Source{Kind: SourcePulse, Pulse: opts}
	})
}

func (b *elements) PWLVoltageSource(name, pos, neg string, points ...PWLPoint) *Element {
	return b.add("V", name, []string{pos, neg}, func(e *Element) {
		e.Source = &Source{Kind: SourcePWL, PWL: points}
	})
}

func (b *elements) Elements() []*Element {
	return b.list
}

func (b *elements) Element(name string) *Element {
	for _, e := range b.list {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

// Circuit is an owned, mutable netlist builder.
type Circuit struct {
	elements
	Title       string
	Gnd         string
	models      []*Model
	subcircuits []*SubCircuit
	includes    []string
	raw         strings.Builder
}

func New(title string) *Circuit {
	return &Circuit{Title: title, Gnd: Gnd}
}

// Model adds a .model card. params alternate name and value:
// Model("MyDiode", "D", "IS", 4.352e-9, "N", 1.906).
func (c *Circuit) Model(name, kind string, params ...any) *Model {
	m := &Model{Name: name, Kind: kind}
	for i := 0; i+1 < len(params); i += 2 {
		key := fmt.Sprint(params[i])
		value, err := toFloat(params[i+1])
		if err != nil && c.err == nil {
			c.err = fmt.Errorf("model %s parameter %s: %w", name, key, err)
		}
		m.Params = append(m.Params, ModelParam{Name: key, Value: value})
	}
	if len(params)%2 != 0 && c.err == nil {
		c.err = fmt.Errorf("model %s: odd number of parameter arguments", name)
	}
	c.models = append(c.models, m)
	return m
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return ParseValue(x)
	}
	return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
}

func (c *Circuit) Models() []*Model {
	return c.models
}

func (c *Circuit) LookupModel(name string) *Model {
	for _, m := range c.models {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// Subcircuit starts a sub-circuit definition with the given external pins.
func (c *Circuit) Subcircuit(name string, pins ...string) *SubCircuit {
	s := &SubCircuit{Name: name, Pins: pins}
	c.subcircuits = append(c.subcircuits, s)
	return s
}

func (c *Circuit) Subcircuits() []*SubCircuit {
	return c.subcircuits
}

func (c *Circuit) LookupSubcircuit(name string) *SubCircuit {
	for _, s := range c.subcircuits {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

func (c *Circuit) Include(path string) *Circuit {
	c.includes = append(c.includes, path)
	return c
}

func (c *Circuit) Includes() []string {
	return c.includes
}

// WriteLine appends a raw statement followed by a newline and returns the
// same circuit.
func (c *Circuit) WriteLine(line string) *Circuit {
	c.raw.WriteString(line)
	c.raw.WriteString("\n")
	return c
}

func (c *Circuit) Raw() string {
	return c.raw.String()
}

// Err reports the first construction error, such as a duplicate name.
func (c *Circuit) Err() error {
	if c.err != nil {
		return c.err
	}
	for _, s := range c.subcircuits {
		if s.err != nil {
			return fmt.Errorf("subcircuit %s: %w", s.Name, s.err)
		}
	}
	return nil
}

// String renders the netlist without analysis cards or .end.
func (c *Circuit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, ".title %s\n", c.Title)
	for _, path := range c.includes {
		fmt.Fprintf(&b, ".include %s\n", path)
	}
	for _, m := range c.models {
		b.WriteString(m.String())
		b.WriteByte('\n')
	}
	for _, s := range c.subcircuits {
		b.WriteString(s.String())
	}
	for _, e := range c.list {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	b.WriteString(c.raw.String())
	return b.String()
}

// Clone returns a deep copy, so a snapshot can be handed to a simulator.
func (c *Circuit) Clone() *Circuit {
	out := New(c.Title)
	out.Gnd = c.Gnd
	out.err = c.err
	for _, e := range c.list {
		out.list = append(out.list, e.clone())
	}
	out.names = maps.Clone(c.names)
	for _, m := range c.models {
		mc := *m
		mc.Params = slices.Clone(m.Params)
		out.models = append(out.models, &mc)
	}
	for _, s := range c.subcircuits {
		out.subcircuits = append(out.subcircuits, s.clone())
	}
	out.includes = slices.Clone(c.includes)
	out.raw.WriteString(c.raw.String())
	return out
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
