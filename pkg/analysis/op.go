package analysis

import (
	"context"
	"fmt"

	"github.com/edp1096/toy-spice-tutorials/pkg/device"
)

type OperatingPoint struct {
	BaseAnalysis
	result *Result[float64]
}

var _ Analyzer[float64] = (*OperatingPoint)(nil)

func NewOP() *OperatingPoint {
	return &OperatingPoint{BaseAnalysis: *NewBaseAnalysis()}
}

func (op *OperatingPoint) Execute(ctx context.Context) error {
	if op.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}

	status := op.Circuit.NewStatus(device.OperatingPointAnalysis)
	if err := op.solveDC(ctx, status); err != nil {
		return fmt.Errorf("operating point: %w", err)
	}

	op.result = NewResult[float64](KindOperatingPoint, op.Circuit.Name())
	op.storeSolution(op.result)

	return nil
}

func (op *OperatingPoint) Result() *Result[float64] {
	return op.result
}
