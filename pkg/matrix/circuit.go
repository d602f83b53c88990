package matrix

import (
	"fmt"
	"log/slog"

	"github.com/edp1096/sparse"
)

var _ DeviceMatrix = (*CircuitMatrix)(nil)

type CircuitMatrix struct {
	Size      int
	matrix    *sparse.Matrix
	elements  [][]*sparse.Element // handles fixed before the first reorder
	rhs       []float64
	solution  []float64
	isComplex bool
	config    *sparse.Configuration
}

func NewMatrix(size int, isComplex bool) (*CircuitMatrix, error) {
	if size < 1 {
		return nil, fmt.Errorf("matrix size must be positive, got %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	vectorSize := size + 1 // 1-based indexing
	if isComplex {
		vectorSize *= 2 // interleaved real, imag
	}

	m := &CircuitMatrix{
		Size:      size,
		matrix:    mat,
		rhs:       make([]float64, vectorSize),
		solution:  make([]float64, vectorSize),
		isComplex: isComplex,
		config:    config,
	}
	m.setupElements()

	return m, nil
}

// setupElements allocates every (i, j) entry up front. Pivoting moves
// elements around internally, so stamps go through these handles rather than
// through GetElement after the first factorization.
func (m *CircuitMatrix) setupElements() {
	m.elements = make([][]*sparse.Element, m.Size+1)
	for i := 1; i <= m.Size; i++ {
		m.elements[i] = make([]*sparse.Element, m.Size+1)
		for j := 1; j <= m.Size; j++ {
			m.elements[i][j] = m.matrix.GetElement(int64(i), int64(j))
		}
	}
}

func (m *CircuitMatrix) inBounds(i, j int) bool {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		slog.Warn("matrix index out of bounds", "i", i, "j", j, "size", m.Size)
		return false
	}
	return true
}

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if !m.inBounds(i, j) {
		return
	}
	m.elements[i][j].Real += value
}

func (m *CircuitMatrix) AddComplexElement(i, j int, real, imag float64) {
	if !m.inBounds(i, j) {
		return
	}
	element := m.elements[i][j]
	element.Real += real
	element.Imag += imag
}

func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if !m.inBounds(i, 1) {
		return
	}
	if m.isComplex {
		m.rhs[2*i] += value
		return
	}
	m.rhs[i] += value
}

func (m *CircuitMatrix) AddComplexRHS(i int, real, imag float64) {
	if !m.inBounds(i, 1) {
		return
	}
	if !m.isComplex {
		m.rhs[i] += real
		return
	}
	m.rhs[2*i] += real
	m.rhs[2*i+1] += imag
}

func (m *CircuitMatrix) LoadGmin(gmin float64) {
	if gmin == 0 {
		return
	}
	for i := 1; i <= m.Size; i++ {
		m.elements[i][i].Real += gmin
	}
}

func (m *CircuitMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *CircuitMatrix) Solve() error {
	err := m.matrix.Factor()
	if err != nil {
		// The pivot order chosen for an earlier system may not suit this one.
		m.matrix.NeedsOrdering = true
		if err = m.matrix.Factor(); err != nil {
			return fmt.Errorf("matrix factorization failed: %w", err)
		}
	}

	if m.isComplex {
		m.solution, _, err = m.matrix.SolveComplex(m.rhs, nil)
	} else {
		m.solution, err = m.matrix.Solve(m.rhs)
	}
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}

	return nil
}

func (m *CircuitMatrix) IsComplex() bool {
	return m.isComplex
}

func (m *CircuitMatrix) RHS() []float64 {
	return m.rhs
}

// Solution returns the real solution vector, 1-based, index 0 is ground.
func (m *CircuitMatrix) Solution() []float64 {
	return m.solution
}

func (m *CircuitMatrix) ComplexSolution(i int) complex128 {
	if !m.isComplex || i <= 0 || i > m.Size {
		return 0
	}
	return complex(m.solution[2*i], m.solution[2*i+1])
}

func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
	m.elements = nil
}
