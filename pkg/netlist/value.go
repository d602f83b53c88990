package netlist

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var valuePattern = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)([a-zA-Z]*)$`)

var unitMap = map[byte]float64{
	't': 1e12,  // tera
	'g': 1e9,   // giga
	'k': 1e3,   // kilo
	'm': 1e-3,  // milli
	'u': 1e-6,  // micro
	'n': 1e-9,  // nano
	'p': 1e-12, // pico
	'f': 1e-15, // femto
}

// ParseValue - Parse value and factor. 1k -> 1000, 4.7uF -> 4.7e-6.
// Scale factors are case-insensitive; letters after the factor are a unit and
// ignored.
func ParseValue(val string) (float64, error) {
	matches := valuePattern.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %q", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	suffix := strings.ToLower(matches[2])
	switch {
	case suffix == "":
	case strings.HasPrefix(suffix, "meg"):
		num *= 1e6
	case strings.HasPrefix(suffix, "mil"):
		num *= 25.4e-6
	default:
		if multiplier, ok := unitMap[suffix[0]]; ok {
			num *= multiplier
		}
	}

	return num, nil
}

var suffixes = []struct {
	scale  float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "G"},
	{1e6, "meg"},
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "u"},
	{1e-9, "n"},
	{1e-12, "p"},
	{1e-15, "f"},
}

// FormatValue renders a number with a SPICE scale factor: 9000 -> 9k,
// 1e-6 -> 1u, 1e6 -> 1meg.
func FormatValue(v float64) string {
	if v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	abs := math.Abs(v)
	for _, s := range suffixes {
		if abs >= s.scale*(1-1e-12) {
			return trimMantissa(v/s.scale) + s.suffix
		}
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func trimMantissa(m float64) string {
	return strconv.FormatFloat(m, 'g', 12, 64)
}
