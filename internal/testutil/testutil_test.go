package testutil

import (
	"testing"

	"github.com/banshee-data/nowcast/internal/grid"
)

func TestMakeGrid(t *testing.T) {
	g := MakeGrid(t, 3, 4)
	if g.Shape() != (grid.Shape{Rows: 3, Cols: 4}) {
		t.Errorf("Shape = %v, want 3x4", g.Shape())
	}
	if got := g.Point(5); got != (grid.Point{Lat: 1, Lon: 1}) {
		t.Errorf("Point(5) = %v, want (1, 1)", got)
	}
}

func TestMakeUniformField(t *testing.T) {
	f := MakeUniformField(t, 2, 2, 7)
	for _, v := range f.Values() {
		if v != 7 {
			t.Fatalf("uniform field holds %v, want 7", v)
		}
	}
}

func TestMakeField(t *testing.T) {
	f := MakeField(t, 2, 2, []float64{1, 2, 3, 4})
	if got := f.At(1, 0); got != 3 {
		t.Errorf("At(1,0) = %v, want 3", got)
	}
}

func TestMakeRampField(t *testing.T) {
	f := MakeRampField(t, 2, 3)
	if got := f.At(1, 2); got != 5 {
		t.Errorf("At(1,2) = %v, want 5", got)
	}
}

func TestAssertValuesClose(t *testing.T) {
	AssertValuesClose(t, []float64{1, 2}, []float64{1, 2.0000001}, 1e-3)
}
