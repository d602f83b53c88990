package netlist

import (
	"fmt"
	"maps"
	"strings"
)

// SubCircuit is a .subckt definition. It accepts the same element
// operations as Circuit.
type SubCircuit struct {
	elements
	Name string
	Pins []string
}

func (s *SubCircuit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, ".subckt %s %s\n", s.Name, strings.Join(s.Pins, " "))
	for _, e := range s.list {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, ".ends %s\n", s.Name)
	return b.String()
}

func (s *SubCircuit) clone() *SubCircuit {
	out := &SubCircuit{Name: s.Name, Pins: append([]string(nil), s.Pins...)}
	out.err = s.err
	out.names = maps.Clone(s.names)
	for _, e := range s.list {
		out.list = append(out.list, e.clone())
	}
	return out
}

const maxSubcircuitDepth = 32

// Flatten returns a copy where every X instance of a locally defined
// sub-circuit is replaced by its elements. Instance "X1" of a sub-circuit
// holding R1 and internal node mid yields element X1.R1 and node X1.mid.
// Instances of unknown sub-circuits are kept as they are.
func (c *Circuit) Flatten() (*Circuit, error) {
	out := c.Clone()
	out.list = nil
	out.names = make(map[string]struct{})
	out.subcircuits = nil

	var expand func(list []*Element, prefix string, nodeMap map[string]string, depth int) error
	expand = func(list []*Element, prefix string, nodeMap map[string]string, depth int) error {
		for _, e := range list {
			elem := e.clone()
			elem.Name = prefix + e.Name
			for i, n := range elem.Nodes {
				elem.Nodes[i] = mapNode(n, prefix, nodeMap)
			}

			sub := c.LookupSubcircuit(e.Model)
			if e.Type != "X" || sub == nil {
				out.list = append(out.list, elem)
				out.names[strings.ToLower(elem.Name)] = struct{}{}
				continue
			}

			if depth >= maxSubcircuitDepth {
				return fmt.Errorf("subcircuit %s: nesting deeper than %d", sub.Name, maxSubcircuitDepth)
			}
			if len(elem.Nodes) != len(sub.Pins) {
				return fmt.Errorf("instance %s: %d nodes for %d pins of %s", elem.Name, len(elem.Nodes), len(sub.Pins), sub.Name)
			}

			pins := make(map[string]string, len(sub.Pins))
			for i, pin := range sub.Pins {
				pins[pin] = elem.Nodes[i]
			}
			if err := expand(sub.list, elem.Name+".", pins, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := expand(c.list, "", nil, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func mapNode(node, prefix string, pins map[string]string) string {
	if IsGround(node) {
		return Gnd
	}
	if pins == nil {
		return node
	}
	if outer, ok := pins[node]; ok {
		return outer
	}
	return prefix + node
}
