package engine

import "fmt"

// CostModel charges a flat commission rate on each side of a round trip.
type CostModel struct {
	commission float64
}

// NewCostModel creates a CostModel with the given per-trade commission
// fraction (e.g. 0.0025 for 0.25%). The rate must be in [0, 1).
func NewCostModel(commission float64) (*CostModel, error) {
	if commission < 0 || commission >= 1 {
		return nil, fmt.Errorf("commission must be in [0, 1), got %v", commission)
	}
	return &CostModel{commission: commission}, nil
}

// Commission returns the per-trade rate.
func (c *CostModel) Commission() float64 { return c.commission }

// Net converts a gross period return into the return after paying the
// commission once on entry and once on exit:
//
//	net = (1 + gross)(1 − c)² − 1
func (c *CostModel) Net(gross float64) float64 {
	keep := 1 - c.commission
	return (1+gross)*keep*keep - 1
}
