package timeline

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNoSuchVariable  = errors.New("no such variable in interpolation table")
	ErrChannelMismatch = errors.New("channel and value counts differ")
	ErrEmptyTable      = errors.New("interpolation table holds no points")
)

// Table maps one independent variable to one or more named dependent
// channels. Rows are append-only and every channel stays exactly as long as
// the independent axis; an addition that would desynchronise the arrays fails
// instead. The independent axis is assumed non-decreasing, which holds for
// wrap-corrected elapsed time.
type Table struct {
	ind   []float64
	names []string
	vars  map[string][]float64
}

// NewTable creates a table tracking the given dependent channels. The channel
// set is fixed for the table's lifetime.
func NewTable(names ...string) *Table {
	t := &Table{names: append([]string(nil), names...), vars: make(map[string][]float64, len(names))}
	for _, name := range names {
		t.vars[name] = nil
	}
	return t
}

// AddPoint appends one row to a single-channel table. Using it on a
// multi-channel table would leave the other channels short, so that is
// rejected outright.
func (t *Table) AddPoint(x float64, name string, y float64) error {
	if len(t.names) != 1 {
		return fmt.Errorf("single-channel add on table with %d channels: %w", len(t.names), ErrNoSuchVariable)
	}
	col, ok := t.vars[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNoSuchVariable)
	}
	t.ind = append(t.ind, x)
	t.vars[name] = append(col, y)
	return nil
}

// AddPoints appends one row across several channels atomically: either every
// named channel receives its value or the table is left untouched.
func (t *Table) AddPoints(x float64, names []string, ys []float64) error {
	if len(names) != len(ys) {
		return fmt.Errorf("%d channels, %d values: %w", len(names), len(ys), ErrChannelMismatch)
	}
	for _, name := range names {
		if _, ok := t.vars[name]; !ok {
			return fmt.Errorf("%q: %w", name, ErrNoSuchVariable)
		}
	}
	t.ind = append(t.ind, x)
	for i, name := range names {
		t.vars[name] = append(t.vars[name], ys[i])
	}
	return nil
}

func (t *Table) NPoints() int {
	return len(t.ind)
}

// Ind returns the independent axis. Callers must not mutate it.
func (t *Table) Ind() []float64 {
	return t.ind
}

func (t *Table) Var(name string) ([]float64, error) {
	col, ok := t.vars[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNoSuchVariable)
	}
	return col, nil
}

// Interpolate evaluates each requested channel at the query points by
// piecewise-linear interpolation against the independent axis. Queries
// outside the observed range clamp to the nearest endpoint value; there is no
// extrapolation.
func (t *Table) Interpolate(names []string, xs []float64) ([][]float64, error) {
	if len(t.ind) == 0 {
		return nil, ErrEmptyTable
	}
	out := make([][]float64, len(names))
	for i, name := range names {
		col, ok := t.vars[name]
		if !ok {
			return nil, fmt.Errorf("%q: %w", name, ErrNoSuchVariable)
		}
		vals := make([]float64, len(xs))
		for j, x := range xs {
			vals[j] = interpolateOne(t.ind, col, x)
		}
		out[i] = vals
	}
	return out, nil
}

func interpolateOne(ind, col []float64, x float64) float64 {
	n := len(ind)
	i := sort.SearchFloat64s(ind, x)
	switch {
	case i == 0:
		return col[0]
	case i == n:
		return col[n-1]
	}
	x0, x1 := ind[i-1], ind[i]
	y0, y1 := col[i-1], col[i]
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}
