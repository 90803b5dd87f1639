package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScale(t *testing.T) {
	testCases := []struct {
		name      string
		expr      string
		expected  Scale
		expectErr bool
	}{
		{name: "Empty", expr: "", expected: Identity},
		{name: "Whitespace only", expr: "   ", expected: Identity},
		{name: "Multiply", expr: "*2.5", expected: Scale{Op: ScaleMultiply, Factor: 2.5}},
		{name: "Divide", expr: "/3", expected: Scale{Op: ScaleDivide, Factor: 3}},
		{name: "Spaces around factor", expr: " * 10 ", expected: Scale{Op: ScaleMultiply, Factor: 10}},
		{name: "No operator", expr: "10", expected: Identity},
		{name: "Unknown operator", expr: "+5", expected: Identity},
		{name: "Missing factor", expr: "*", expected: Identity, expectErr: true},
		{name: "Non numeric factor", expr: "/abc", expected: Identity, expectErr: true},
		{name: "Divide by zero", expr: "/0", expected: Identity, expectErr: true},
		{name: "Infinite factor", expr: "*Inf", expected: Identity, expectErr: true},
		{name: "Multiply by zero", expr: "*0", expected: Scale{Op: ScaleMultiply, Factor: 0}},
		{name: "Trailing unit after factor", expr: "*2.5kg", expected: Scale{Op: ScaleMultiply, Factor: 2.5}},
		{name: "Trailing text after divisor", expr: "/10 (raw)", expected: Scale{Op: ScaleDivide, Factor: 10}},
		{name: "Exponent factor", expr: "*1e3x", expected: Scale{Op: ScaleMultiply, Factor: 1000}},
		{name: "Dangling exponent", expr: "*2e", expected: Scale{Op: ScaleMultiply, Factor: 2}},
		{name: "Leading fraction", expr: "*.5", expected: Scale{Op: ScaleMultiply, Factor: 0.5}},
		{name: "Sign only", expr: "*-", expected: Identity, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseScale(tc.expr)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestScale_Apply(t *testing.T) {
	assert.Equal(t, 25.0, Scale{Op: ScaleMultiply, Factor: 2.5}.Apply(10))
	assert.Equal(t, 5.0, Scale{Op: ScaleDivide, Factor: 2}.Apply(10))
	assert.Equal(t, 10.0, Identity.Apply(10))

	// Rounded to two decimals.
	assert.Equal(t, 3.33, Scale{Op: ScaleDivide, Factor: 3}.ApplyRounded(10))
	assert.Equal(t, 1.24, Identity.ApplyRounded(1.236))
}

func TestScale_ApplyRoundedHalves(t *testing.T) {
	testCases := []struct {
		name     string
		raw      float64
		expected float64
	}{
		{name: "Positive half rounds up", raw: 1.125, expected: 1.13},
		{name: "Negative half rounds toward zero", raw: -1.125, expected: -1.12},
		{name: "Negative below half", raw: -1.126, expected: -1.13},
		{name: "Already two decimals", raw: -0.5, expected: -0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Identity.ApplyRounded(tc.raw))
		})
	}
}

func TestScale_String(t *testing.T) {
	assert.Equal(t, "*2.5", Scale{Op: ScaleMultiply, Factor: 2.5}.String())
	assert.Equal(t, "/3", Scale{Op: ScaleDivide, Factor: 3}.String())
	assert.Equal(t, "", Identity.String())
}
