// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/nowcast/internal/grid"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertValuesClose checks two value arrays element-wise within tol.
func AssertValuesClose(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("value count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("value[%d] = %v, want %v (tol %v)", i, got[i], want[i], tol)
		}
	}
}

// MakeGrid builds an integer-spaced rows x cols test grid starting at the
// origin.
func MakeGrid(t *testing.T, rows, cols int) *grid.Grid {
	t.Helper()
	lats := make([]float64, rows)
	for i := range lats {
		lats[i] = float64(i)
	}
	lons := make([]float64, cols)
	for i := range lons {
		lons[i] = float64(i)
	}
	g, err := grid.FromAxes(lats, lons)
	if err != nil {
		t.Fatalf("MakeGrid(%d, %d): %v", rows, cols, err)
	}
	return g
}

// MakeField binds vals to a MakeGrid grid.
func MakeField(t *testing.T, rows, cols int, vals []float64) *grid.Field {
	t.Helper()
	f, err := grid.NewField(vals, MakeGrid(t, rows, cols), nil)
	if err != nil {
		t.Fatalf("MakeField(%d, %d): %v", rows, cols, err)
	}
	return f
}

// MakeUniformField builds a constant-valued field on a MakeGrid grid.
func MakeUniformField(t *testing.T, rows, cols int, value float64) *grid.Field {
	t.Helper()
	g := MakeGrid(t, rows, cols)
	vals := make([]float64, g.Len())
	for i := range vals {
		vals[i] = value
	}
	f, err := grid.NewField(vals, g, nil)
	if err != nil {
		t.Fatalf("MakeUniformField: %v", err)
	}
	return f
}

// MakeRampField builds a field whose value equals its flat index, handy for
// tracking where values move during resampling and advection.
func MakeRampField(t *testing.T, rows, cols int) *grid.Field {
	t.Helper()
	g := MakeGrid(t, rows, cols)
	vals := make([]float64, g.Len())
	for i := range vals {
		vals[i] = float64(i)
	}
	f, err := grid.NewField(vals, g, nil)
	if err != nil {
		t.Fatalf("MakeRampField: %v", err)
	}
	return f
}
