package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/edp1096/toy-spice-tutorials/pkg/circuit"
	"github.com/edp1096/toy-spice-tutorials/pkg/device"
)

var ErrNoConvergence = errors.New("failed to converge")

// Analyzer runs one analysis on a built circuit.
type Analyzer[T Sample] interface {
	Setup(ckt *circuit.Circuit) error
	Execute(ctx context.Context) error
	Result() *Result[T]
}

type BaseAnalysis struct {
	Circuit     *circuit.Circuit
	convergence struct {
		maxIter     int
		maxTranIter int
		abstol      float64
		vntol       float64
		reltol      float64
		gminSteps   int
	}
}

func NewBaseAnalysis() *BaseAnalysis {
	ba := &BaseAnalysis{}

	ba.convergence.maxIter = 100
	ba.convergence.maxTranIter = 50
	ba.convergence.abstol = 1e-12
	ba.convergence.vntol = 1e-6
	ba.convergence.reltol = 1e-3
	ba.convergence.gminSteps = 10

	return ba
}

func (a *BaseAnalysis) Setup(ckt *circuit.Circuit) error {
	if ckt == nil {
		return fmt.Errorf("circuit not set")
	}
	a.Circuit = ckt
	return nil
}

// CheckConvergence compares two Newton iterates. Node voltages use vntol,
// branch currents abstol.
func (a *BaseAnalysis) CheckConvergence(oldSol, newSol []float64) bool {
	if len(oldSol) != len(newSol) {
		return false
	}

	numNodes := a.Circuit.GetNumNodes()
	for i := 1; i < len(newSol); i++ {
		tol := a.convergence.abstol
		if i <= numNodes {
			tol = a.convergence.vntol
		}
		diff := math.Abs(newSol[i] - oldSol[i])
		if diff > a.convergence.reltol*math.Max(math.Abs(newSol[i]), math.Abs(oldSol[i]))+tol {
			return false
		}
	}
	return true
}

// doNRiter runs Newton-Raphson iterations until the solution settles.
// Linear circuits return after one solve.
func (a *BaseAnalysis) doNRiter(status *device.CircuitStatus, gmin float64, maxIter int) error {
	ckt := a.Circuit
	mat := ckt.GetMatrix()
	var oldSolution []float64

	for iter := range maxIter {
		mat.Clear()

		err := ckt.Stamp(status)
		if err != nil {
			return fmt.Errorf("stamping error: %w", err)
		}
		mat.LoadGmin(gmin)

		err = mat.Solve()
		if err != nil {
			return fmt.Errorf("matrix solve error: %w", err)
		}

		solution := mat.Solution()
		if !ckt.HasNonlinear() {
			return nil
		}

		err = ckt.UpdateNonlinearVoltages(solution)
		if err != nil {
			return fmt.Errorf("updating nonlinear voltages: %w", err)
		}

		if iter > 0 && !ckt.Limited() && a.CheckConvergence(oldSolution, solution) {
			return nil
		}

		if oldSolution == nil {
			oldSolution = make([]float64, len(solution))
		}
		copy(oldSolution, solution)
	}

	return fmt.Errorf("%w in %d iterations", ErrNoConvergence, maxIter)
}

// solveDC finds a DC solution, falling back to gmin stepping when plain
// Newton iterations do not converge.
func (a *BaseAnalysis) solveDC(ctx context.Context, status *device.CircuitStatus) error {
	err := a.doNRiter(status, 0, a.convergence.maxIter)
	if err == nil || !errors.Is(err, ErrNoConvergence) {
		return err
	}
	slog.Debug("starting gmin stepping", "circuit", a.Circuit.Name(), "error", err)

	mat := a.Circuit.GetMatrix()
	gmin := float64(mat.Size) * 0.001 * math.Pow(10, float64(a.convergence.gminSteps))

	for range a.convergence.gminSteps + 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		err = a.doNRiter(status, gmin, a.convergence.maxIter)
		if err != nil {
			return fmt.Errorf("gmin stepping failed at %g: %w", gmin, err)
		}
		gmin /= 10
	}

	err = a.doNRiter(status, 0, a.convergence.maxIter)
	if err != nil {
		return fmt.Errorf("final solution failed with zero gmin: %w", err)
	}
	return nil
}

// storeSolution appends the current real solution to a result.
func (a *BaseAnalysis) storeSolution(r *Result[float64]) {
	nodes, branches := a.Circuit.GetSolution()
	for i, name := range a.Circuit.NodeNames() {
		r.nodes.Append(name, nodes[i])
	}
	for i, name := range a.Circuit.BranchNames() {
		r.branches.Append(name, branches[i])
	}
}
