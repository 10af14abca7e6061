package valuation

import (
	"errors"

	"StockScope/internal/model"
)

// DefaultOffsets are the percentage-point steps applied around the base
// growth and discount rates.
var DefaultOffsets = []float64{-4, -2, 0, 2, 4}

// CellStatus marks whether a grid cell carries a per-share value.
type CellStatus int

const (
	CellOK CellStatus = iota
	// CellInvalid cells violate growth < discount or discount > terminal growth
	// and are never computed.
	CellInvalid
	// CellUnavailable cells were computed but have no per-share value.
	CellUnavailable
)

func (s CellStatus) String() string {
	switch s {
	case CellOK:
		return "ok"
	case CellInvalid:
		return "invalid"
	default:
		return "n/a"
	}
}

// Cell is one (growth, discount) combination of a sensitivity grid.
type Cell struct {
	Growth   float64
	Discount float64
	Status   CellStatus
	PerShare *float64
	Err      error
}

// Grid holds per-share values with rows by growth and columns by discount
// rate. BaseRow and BaseCol locate the base assumptions, or -1 when the
// offsets do not include 0.
type Grid struct {
	Growths      []float64
	Discounts    []float64
	Cells        [][]Cell
	BaseRow      int
	BaseCol      int
	GrowthSource GrowthSource
}

// Sensitivity sweeps growth and discount rates around base. The growth axis
// is centered on the resolved base growth. Per-cell failures are recorded in
// the cell and never abort the sweep.
func Sensitivity(in Inputs, base Assumptions, offsets []float64) (*Grid, error) {
	sym := in.symbol()
	fcf, err := FreeCashFlows(in.Statements)
	if err != nil {
		return nil, model.WithSymbol(err, sym)
	}
	shares, _ := ResolveShares(in.Fundamentals)
	g, err := SensitivityFromFCF(fcf, shares, base, offsets)
	if err != nil {
		return nil, model.WithSymbol(err, sym)
	}
	return g, nil
}

// SensitivityFromFCF is Sensitivity over an already computed cash flow history.
func SensitivityFromFCF(history []float64, shares *float64, base Assumptions, offsets []float64) (*Grid, error) {
	if base.ForecastYears < 1 {
		return nil, model.Invalid("sensitivity", "forecast years", "must be at least 1, got %d", base.ForecastYears)
	}
	if len(history) == 0 {
		return nil, model.Insufficient("sensitivity", "no free cash flow history")
	}
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	growth, source := ResolveGrowth(base.GrowthRate, history)

	grid := &Grid{
		Growths:      make([]float64, len(offsets)),
		Discounts:    make([]float64, len(offsets)),
		Cells:        make([][]Cell, len(offsets)),
		BaseRow:      -1,
		BaseCol:      -1,
		GrowthSource: source,
	}
	for i, off := range offsets {
		grid.Growths[i] = growth + off
		grid.Discounts[i] = base.DiscountRate + off
		if off == 0 {
			grid.BaseRow, grid.BaseCol = i, i
		}
	}
	for i, g := range grid.Growths {
		row := make([]Cell, len(grid.Discounts))
		for j, d := range grid.Discounts {
			row[j] = evalCell(history, shares, base, g, d)
		}
		grid.Cells[i] = row
	}
	return grid, nil
}

func evalCell(history []float64, shares *float64, base Assumptions, g, d float64) Cell {
	c := Cell{Growth: g, Discount: d}
	if g >= d {
		c.Status = CellInvalid
		c.Err = model.Invalid("sensitivity", "growth rate", "growth %.2f%% is not below discount %.2f%%", g, d)
		return c
	}
	a := base.WithGrowth(g)
	a.DiscountRate = d
	res, err := ValueFromFCF(history, shares, a)
	switch {
	case errors.Is(err, model.ErrInvalidAssumptions):
		c.Status = CellInvalid
		c.Err = err
	case err != nil:
		c.Status = CellUnavailable
		c.Err = err
	case res.PerShare == nil:
		c.Status = CellUnavailable
	default:
		c.PerShare = res.PerShare
	}
	return c
}

// Base returns the cell computed from the base assumptions.
func (g *Grid) Base() (Cell, bool) {
	if g.BaseRow < 0 || g.BaseCol < 0 {
		return Cell{}, false
	}
	return g.Cells[g.BaseRow][g.BaseCol], true
}
