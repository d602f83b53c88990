package simulator

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RawVariable is one column of a raw file plot.
type RawVariable struct {
	Index int
	Name  string
	Type  string // time, frequency, voltage, current
}

// RawPlot is one plot of a SPICE ASCII raw file. Real plots fill Real;
// complex plots fill Complex. Data is column-major: Real[v][point].
type RawPlot struct {
	Title     string
	Name      string
	Complex   bool
	Variables []RawVariable
	Points    int
	Real      [][]float64
	Cplx      [][]complex128
}

// Column returns the index of the named variable, case-insensitively.
func (p *RawPlot) Column(name string) int {
	for i, v := range p.Variables {
		if strings.EqualFold(v.Name, name) {
			return i
		}
	}
	return -1
}

// ReadRaw decodes every plot of an ASCII raw file, in file order.
func ReadRaw(r io.Reader) ([]*RawPlot, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var plots []*RawPlot
	var title string
	lineNo := 0

	next := func() (string, bool) {
		for sc.Scan() {
			lineNo++
			if line := strings.TrimSpace(sc.Text()); line != "" {
				return line, true
			}
		}
		return "", false
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("raw line %d: unexpected %q", lineNo, line)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "title":
			title = value
			plots = append(plots, &RawPlot{Title: title})
		case "plotname":
			p := currentPlot(&plots, title)
			p.Name = value
		case "flags":
			p := currentPlot(&plots, title)
			p.Complex = strings.Contains(strings.ToLower(value), "complex")
		case "no. points":
			p := currentPlot(&plots, title)
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("raw line %d: points: %w", lineNo, err)
			}
			p.Points = n
		case "no. variables":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("raw line %d: variables: %w", lineNo, err)
			}
			p := currentPlot(&plots, title)
			p.Variables = make([]RawVariable, 0, n)
		case "variables":
			p := currentPlot(&plots, title)
			n := cap(p.Variables)
			if value != "" {
				// Some writers put the first variable on the same line.
				return nil, fmt.Errorf("raw line %d: inline variable list not supported", lineNo)
			}
			for range n {
				vl, ok := next()
				if !ok {
					return nil, fmt.Errorf("raw: truncated variable list")
				}
				f := strings.Fields(vl)
				if len(f) < 3 {
					return nil, fmt.Errorf("raw line %d: bad variable %q", lineNo, vl)
				}
				idx, err := strconv.Atoi(f[0])
				if err != nil {
					return nil, fmt.Errorf("raw line %d: %w", lineNo, err)
				}
				p.Variables = append(p.Variables, RawVariable{Index: idx, Name: f[1], Type: f[2]})
			}
		case "values":
			p := currentPlot(&plots, title)
			if err := readValues(p, next); err != nil {
				return nil, fmt.Errorf("raw plot %q: %w", p.Name, err)
			}
			// A following plot starts with a fresh header.
			title = ""
		case "binary":
			return nil, fmt.Errorf("raw line %d: binary raw files are not supported", lineNo)
		default:
			// Date, Command, Option and similar headers.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(plots) == 0 {
		return nil, fmt.Errorf("raw: no plots")
	}
	return plots, nil
}

func currentPlot(plots *[]*RawPlot, title string) *RawPlot {
	if len(*plots) == 0 || (*plots)[len(*plots)-1].Real != nil || (*plots)[len(*plots)-1].Cplx != nil {
		*plots = append(*plots, &RawPlot{Title: title})
	}
	return (*plots)[len(*plots)-1]
}

func readValues(p *RawPlot, next func() (string, bool)) error {
	nv := len(p.Variables)
	if nv == 0 {
		return fmt.Errorf("values before variables")
	}
	if p.Complex {
		p.Cplx = make([][]complex128, nv)
	} else {
		p.Real = make([][]float64, nv)
	}

	var tokens []string
	take := func() (string, error) {
		for len(tokens) == 0 {
			line, ok := next()
			if !ok {
				return "", io.ErrUnexpectedEOF
			}
			tokens = strings.Fields(line)
		}
		t := tokens[0]
		tokens = tokens[1:]
		return t, nil
	}

	for point := 0; point < p.Points; point++ {
		idx, err := take()
		if err != nil {
			return fmt.Errorf("point %d: %w", point, err)
		}
		if _, err := strconv.Atoi(idx); err != nil {
			return fmt.Errorf("point %d: bad index %q", point, idx)
		}
		for v := 0; v < nv; v++ {
			tok, err := take()
			if err != nil {
				return fmt.Errorf("point %d: %w", point, err)
			}
			if p.Complex {
				c, err := parseRawComplex(tok)
				if err != nil {
					return fmt.Errorf("point %d %s: %w", point, p.Variables[v].Name, err)
				}
				p.Cplx[v] = append(p.Cplx[v], c)
			} else {
				f, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return fmt.Errorf("point %d %s: %w", point, p.Variables[v].Name, err)
				}
				p.Real[v] = append(p.Real[v], f)
			}
		}
	}
	if len(tokens) > 0 {
		return fmt.Errorf("trailing data %q", strings.Join(tokens, " "))
	}
	return nil
}

func parseRawComplex(tok string) (complex128, error) {
	re, im, found := strings.Cut(tok, ",")
	r, err := strconv.ParseFloat(re, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return complex(r, 0), nil
	}
	i, err := strconv.ParseFloat(im, 64)
	if err != nil {
		return 0, err
	}
	return complex(r, i), nil
}
