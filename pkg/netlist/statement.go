package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedStatement marks a raw line the decoder does not understand,
// such as .include or a control card.
var ErrUnsupportedStatement = errors.New("unsupported statement")

type StatementError struct {
	Line int
	Text string
	Err  error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Statements is the decoded form of raw netlist text.
type Statements struct {
	Elements []*Element
	Models   []*Model
}

// DecodeStatements reads element lines (R, C, L, V, I, D) and .model cards.
// Comments, blank lines and "+" continuations are handled; anything else is
// reported as ErrUnsupportedStatement.
func DecodeStatements(text string) (*Statements, error) {
	out := &Statements{}
	scanner := bufio.NewScanner(strings.NewReader(text))

	var current string
	currentLine, lineNo := 0, 0
	flush := func() error {
		if current == "" {
			return nil
		}
		err := out.decodeLine(current)
		if err != nil {
			return &StatementError{Line: currentLine, Text: current, Err: err}
		}
		current = ""
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		switch {
		case line == "", strings.HasPrefix(line, "*"):
			continue
		case strings.HasPrefix(line, "+"): // Line continue
			current += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		current, currentLine = line, lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Statements) decodeLine(line string) error {
	if strings.HasPrefix(line, ".") {
		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case ".model":
			m, err := parseModel(fields[1:])
			if err != nil {
				return err
			}
			s.Models = append(s.Models, m)
			return nil
		case ".end":
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedStatement, fields[0])
	}

	elem, err := parseElement(line)
	if err != nil {
		return err
	}
	s.Elements = append(s.Elements, elem)
	return nil
}

func parseModel(fields []string) (*Model, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("insufficient model parameters")
	}

	// ".model NAME D(IS=1n N=2)" and ".model NAME D (IS=1n N=2)" are both valid.
	rest := strings.Join(fields[1:], " ")
	rest = strings.NewReplacer("(", " ", ")", " ").Replace(rest)
	words := strings.Fields(rest)

	m := &Model{Name: fields[0], Kind: strings.ToUpper(words[0])}
	for _, pair := range words[1:] {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid model parameter %q", pair)
		}
		value, err := ParseValue(val)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter value %s: %w", pair, err)
		}
		m.Params = append(m.Params, ModelParam{Name: key, Value: value})
	}

	return m, nil
}

func parseElement(line string) (*Element, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("invalid element format: %s", line)
	}

	elem := &Element{
		Name: fields[0],
		Type: strings.ToUpper(fields[0][:1]),
	}

	switch elem.Type {
	case "V", "I":
		if len(fields) < 4 {
			return nil, fmt.Errorf("insufficient source parameters")
		}
		elem.Nodes = fields[1:3]
		src, err := parseSource(fields[3:])
		if err != nil {
			return nil, err
		}
		elem.Source = src

	case "D":
		if len(fields) < 4 {
			return nil, fmt.Errorf("diode %s: missing model name", elem.Name)
		}
		elem.Nodes = fields[1:3]
		elem.Model = fields[3]

	case "R", "C", "L":
		if len(fields) < 4 {
			return nil, fmt.Errorf("%s: missing value", elem.Name)
		}
		elem.Nodes = fields[1:3]
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, err
		}
		elem.Value = value
		for _, f := range fields[4:] {
			key, val, ok := strings.Cut(f, "=")
			if !ok {
				return nil, fmt.Errorf("%s: unexpected field %q", elem.Name, f)
			}
			if elem.Params == nil {
				elem.Params = make(map[string]string)
			}
			elem.Params[strings.ToLower(key)] = val
		}

	default:
		return nil, fmt.Errorf("%w: element type %s", ErrUnsupportedStatement, elem.Type)
	}

	return elem, nil
}

// parseSource reads "[DC] v [AC mag [phase]] [SIN(...)|PULSE(...)|PWL(...)]".
func parseSource(fields []string) (*Source, error) {
	remaining := strings.Join(fields, " ")
	remaining = strings.ReplaceAll(remaining, "(", " ( ") // Append whitespace around parentheses
	remaining = strings.ReplaceAll(remaining, ")", " ) ")
	words := strings.Fields(remaining)

	src := &Source{Kind: SourceDC}
	for i := 0; i < len(words); i++ {
		word := strings.ToUpper(words[i])
		switch word {
		case "DC":
			if i+1 >= len(words) {
				return nil, fmt.Errorf("missing DC value")
			}
			value, err := ParseValue(words[i+1])
			if err != nil {
				return nil, err
			}
			src.DC, src.HasDC = value, true
			i++

		case "AC":
			if i+1 >= len(words) {
				return nil, fmt.Errorf("missing AC magnitude")
			}
			magnitude, err := ParseValue(words[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid AC magnitude: %w", err)
			}
			src.ACMag = magnitude
			i++
			if i+1 < len(words) {
				if phase, err := ParseValue(words[i+1]); err == nil {
					src.ACPhase = phase
					i++
				}
			}

		case "SIN", "PULSE", "PWL":
			args, next, err := groupArgs(words, i+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", word, err)
			}
			if err := src.setFunction(word, args); err != nil {
				return nil, err
			}
			i = next - 1

		default:
			// A bare leading number is the DC value.
			value, err := ParseValue(words[i])
			if err != nil || src.HasDC {
				return nil, fmt.Errorf("unexpected source field %q", words[i])
			}
			src.DC, src.HasDC = value, true
		}
	}

	return src, nil
}

// groupArgs collects the parenthesized values starting at words[start] and
// returns the index after the closing parenthesis.
func groupArgs(words []string, start int) ([]float64, int, error) {
	if start >= len(words) || words[start] != "(" {
		return nil, start, fmt.Errorf("expected '('")
	}
	var args []float64
	for i := start + 1; i < len(words); i++ {
		if words[i] == ")" {
			return args, i + 1, nil
		}
		v, err := ParseValue(words[i])
		if err != nil {
			return nil, i, err
		}
		args = append(args, v)
	}
	return nil, len(words), fmt.Errorf("missing ')'")
}

func (s *Source) setFunction(name string, args []float64) error {
	arg := func(i int) float64 {
		if i < len(args) {
			return args[i]
		}
		return 0
	}

	switch name {
	case "SIN":
		if len(args) < 3 {
			return fmt.Errorf("insufficient SIN parameters")
		}
		s.Kind = SourceSin
		s.Sin = SinusoidalOptions{
			Offset:      args[0],
			Amplitude:   args[1],
			Frequency:   args[2],
			Delay:       arg(3),
			Damping:     arg(4),
			Phase:       arg(5),
			ACMagnitude: s.ACMag,
		}

	case "PULSE":
		if len(args) < 2 {
			return fmt.Errorf("insufficient PULSE parameters")
		}
		s.Kind = SourcePulse
		s.Pulse = PulseOptions{
			Initial: args[0],
			Pulsed:  args[1],
			Delay:   arg(2),
			Rise:    arg(3),
			Fall:    arg(4),
			Width:   arg(5),
			Period:  arg(6),
		}

	case "PWL":
		if len(args) < 2 || len(args)%2 != 0 {
			return fmt.Errorf("insufficient or invalid PWL parameters, need pairs of time-value")
		}
		s.Kind = SourcePWL
		s.PWL = make([]PWLPoint, len(args)/2)
		for i := range s.PWL {
			s.PWL[i] = PWLPoint{Time: args[2*i], Value: args[2*i+1]}
			if i > 0 && s.PWL[i].Time < s.PWL[i-1].Time {
				return fmt.Errorf("PWL time points must be non-decreasing")
			}
		}
	}

	return nil
}
