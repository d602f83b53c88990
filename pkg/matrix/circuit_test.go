package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealDivider(t *testing.T) {
	// 10 V source on node 1 (branch 3), 9k from 1 to 2, 1k from 2 to ground.
	m, err := NewMatrix(3, false)
	require.NoError(t, err)
	defer m.Destroy()

	stamp := func() {
		g1, g2 := 1/9e3, 1/1e3
		m.AddElement(1, 1, g1)
		m.AddElement(1, 2, -g1)
		m.AddElement(2, 1, -g1)
		m.AddElement(2, 2, g1+g2)
		m.AddElement(1, 3, 1)
		m.AddElement(3, 1, 1)
		m.AddRHS(3, 10)
	}

	// Solve twice to exercise reuse of the factored structure.
	for range 2 {
		m.Clear()
		stamp()
		require.NoError(t, m.Solve())
		x := m.Solution()
		assert.InDelta(t, 10.0, x[1], 1e-9)
		assert.InDelta(t, 1.0, x[2], 1e-9)
		assert.InDelta(t, -1e-3, x[3], 1e-12)
	}
}

func TestComplexRC(t *testing.T) {
	// 1 V AC into R=1k, C=1u low-pass; at the break frequency |v2| = 1/sqrt(2).
	m, err := NewMatrix(3, true)
	require.NoError(t, err)
	defer m.Destroy()

	r, c := 1e3, 1e-6
	omega := 1 / (r * c)
	g := 1 / r

	m.Clear()
	m.AddComplexElement(1, 1, g, 0)
	m.AddComplexElement(1, 2, -g, 0)
	m.AddComplexElement(2, 1, -g, 0)
	m.AddComplexElement(2, 2, g, omega*c)
	m.AddComplexElement(1, 3, 1, 0)
	m.AddComplexElement(3, 1, 1, 0)
	m.AddComplexRHS(3, 1, 0)
	require.NoError(t, m.Solve())

	v2 := m.ComplexSolution(2)
	mag := math.Hypot(real(v2), imag(v2))
	assert.InDelta(t, 1/math.Sqrt2, mag, 1e-9)
	assert.InDelta(t, -math.Pi/4, math.Atan2(imag(v2), real(v2)), 1e-9)
}

func TestOutOfBoundsIgnored(t *testing.T) {
	m, err := NewMatrix(1, false)
	require.NoError(t, err)
	defer m.Destroy()

	m.AddElement(0, 1, 5)
	m.AddElement(2, 2, 5)
	m.AddRHS(3, 1)
	m.AddElement(1, 1, 2)
	m.AddRHS(1, 4)
	require.NoError(t, m.Solve())
	assert.InDelta(t, 2.0, m.Solution()[1], 1e-12)
}

func TestNewMatrixRejectsEmpty(t *testing.T) {
	_, err := NewMatrix(0, false)
	assert.ErrorContains(t, err, "must be positive")
	_, err = NewMatrix(-1, true)
	assert.Error(t, err)
}
