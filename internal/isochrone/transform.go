package isochrone

import (
	"fmt"
	"math"
)

// ageScale converts 10**logAge into the Age column's unit. It is kept exactly
// as the model-grid tooling has always written it; 10e-10 == 1e-9.
const ageScale = 10e-10

// TeffFromLog converts log10 effective temperature to Kelvin.
func TeffFromLog(logTe float64) float64 {
	return math.Pow(10, logTe)
}

// AgeFromLog converts log10 age to the integral Age value, rounding half to
// even.
func AgeFromLog(logAge float64) (int64, error) {
	if math.IsNaN(logAge) || math.IsInf(logAge, 0) {
		return 0, fmt.Errorf("%w: cannot convert logAge %v to an integer age", ErrParse, logAge)
	}
	return int64(math.RoundToEven(math.Pow(10, logAge) * ageScale)), nil
}

// ComputeColor returns ci.Left - ci.Right for every row of t.
func ComputeColor(t *Table, ci ColorIndex) ([]float64, error) {
	left, err := t.Column(ci.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.Column(ci.Right)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(left))
	for i := range left {
		out[i] = left[i] - right[i]
	}
	return out, nil
}

// derive applies the unit conversions and appends the colour columns, in
// that order.
func derive(t *Table) error {
	logTe, err := t.Column(ColLogTe)
	if err != nil {
		return err
	}
	teff := make([]float64, len(logTe))
	for i, v := range logTe {
		teff[i] = TeffFromLog(v)
	}
	t.columns[t.index[ColLogTe]] = teff
	if err := t.rename(ColLogTe, ColTeff); err != nil {
		return err
	}

	logAge, err := t.Column(ColLogAge)
	if err != nil {
		return err
	}
	age := make([]float64, len(logAge))
	for i, v := range logAge {
		a, err := AgeFromLog(v)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		age[i] = float64(a)
	}
	t.columns[t.index[ColLogAge]] = age
	if err := t.rename(ColLogAge, ColAge); err != nil {
		return err
	}

	for _, ci := range ColorIndices {
		values, err := ComputeColor(t, ci)
		if err != nil {
			return fmt.Errorf("failed to compute %s: %w", ci.Name, err)
		}
		if err := t.addColumn(ci.Name, values); err != nil {
			return err
		}
	}
	return nil
}
