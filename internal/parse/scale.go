package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScaleOp is the operator of a unit-scale expression.
type ScaleOp int

const (
	ScaleIdentity ScaleOp = iota
	ScaleMultiply
	ScaleDivide
)

// Scale is a parsed unit-scale expression such as "*2.5" or "/3".
type Scale struct {
	Op     ScaleOp
	Factor float64
}

// Identity leaves values unchanged.
var Identity = Scale{Op: ScaleIdentity, Factor: 1}

// ParseScale parses a scale expression. An empty expression or one without a
// leading operator is the identity. The factor is the longest numeric prefix
// after the operator, so "*2.5kg" multiplies by 2.5. A malformed factor (no
// number, not finite, or a zero divisor) yields Identity together with an
// error so the caller can log it and keep going.
func ParseScale(expr string) (Scale, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Identity, nil
	}

	var op ScaleOp
	switch s[0] {
	case '*':
		op = ScaleMultiply
	case '/':
		op = ScaleDivide
	default:
		return Identity, nil
	}

	factor, err := strconv.ParseFloat(numericPrefix(strings.TrimSpace(s[1:])), 64)
	if err != nil {
		return Identity, fmt.Errorf("invalid scale factor in %q: %w", expr, err)
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return Identity, fmt.Errorf("scale factor in %q is not finite", expr)
	}
	if op == ScaleDivide && factor == 0 {
		return Identity, fmt.Errorf("scale expression %q divides by zero", expr)
	}
	return Scale{Op: op, Factor: factor}, nil
}

// numericPrefix returns the leading decimal number of s: an optional sign,
// digits with an optional fraction, and an optional exponent.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for ; k < len(s) && isDigit(s[k]); k++ {
		}
		if k > j {
			end = k
		}
	}
	return s[:end]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Apply converts a raw value.
func (s Scale) Apply(v float64) float64 {
	switch s.Op {
	case ScaleMultiply:
		return v * s.Factor
	case ScaleDivide:
		return v / s.Factor
	default:
		return v
	}
}

// ApplyRounded converts a raw value and rounds it to two decimals, the
// precision stored for readings. Halves round up, so -1.125 becomes -1.12.
func (s Scale) ApplyRounded(v float64) float64 {
	return math.Floor(s.Apply(v)*100+0.5) / 100
}

func (s Scale) String() string {
	switch s.Op {
	case ScaleMultiply:
		return "*" + strconv.FormatFloat(s.Factor, 'g', -1, 64)
	case ScaleDivide:
		return "/" + strconv.FormatFloat(s.Factor, 'g', -1, 64)
	default:
		return ""
	}
}
