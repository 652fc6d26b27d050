package grid

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ZoomTo resizes the raw value array to target's shape with separable cubic
// splines, first across each row then down each column. The scale factors
// are purely the ratios of the axis point counts; the actual coordinate
// values of both grids are ignored.
//
// This is a cheap stand-in for coordinate-aware interpolation and only makes
// sense when target's axes are evenly spaced and cover approximately the
// same domain as the source. It must not be "fixed" into a coordinate-aware
// method; use ResampleTo when the domains differ. Unlike ResampleTo, zoomed
// output may contain values that appear nowhere in the source.
func (f *Field) ZoomTo(target *Grid) (*Field, error) {
	if target == nil || target.Len() == 0 {
		return nil, fmt.Errorf("%w: zoom target", ErrEmptyGrid)
	}
	src := f.grid.shape
	dst := target.Shape()

	// Rows pass: stretch every source row to the destination column count.
	wide := make([]float64, src.Rows*dst.Cols)
	rowIn := make([]float64, src.Cols)
	for r := 0; r < src.Rows; r++ {
		copy(rowIn, f.values[r*src.Cols:(r+1)*src.Cols])
		rowOut, err := resampleAxis(rowIn, dst.Cols)
		if err != nil {
			return nil, fmt.Errorf("zoom rows: %w", err)
		}
		copy(wide[r*dst.Cols:(r+1)*dst.Cols], rowOut)
	}

	// Columns pass: stretch every column of the widened array to the
	// destination row count.
	out := make([]float64, dst.N())
	colIn := make([]float64, src.Rows)
	for c := 0; c < dst.Cols; c++ {
		for r := 0; r < src.Rows; r++ {
			colIn[r] = wide[r*dst.Cols+c]
		}
		colOut, err := resampleAxis(colIn, dst.Rows)
		if err != nil {
			return nil, fmt.Errorf("zoom cols: %w", err)
		}
		for r := 0; r < dst.Rows; r++ {
			out[r*dst.Cols+c] = colOut[r]
		}
	}

	return NewField(out, target, f.cache)
}

// resampleAxis stretches a 1-D sample sequence to n points. Sources with at
// least three samples get a natural cubic spline; two samples degrade to
// linear and a single sample to a constant.
func resampleAxis(src []float64, n int) ([]float64, error) {
	out := make([]float64, n)
	if len(src) == 1 {
		for i := range out {
			out[i] = src[0]
		}
		return out, nil
	}
	if n == 1 {
		out[0] = src[0]
		return out, nil
	}

	xs := make([]float64, len(src))
	for i := range xs {
		xs[i] = float64(i)
	}

	var pred interp.FittablePredictor
	if len(src) >= 3 {
		pred = &interp.NaturalCubic{}
	} else {
		pred = &interp.PiecewiseLinear{}
	}
	if err := pred.Fit(xs, src); err != nil {
		return nil, fmt.Errorf("spline fit over %d samples: %w", len(src), err)
	}

	scale := float64(len(src)-1) / float64(n-1)
	for i := range out {
		out[i] = pred.Predict(float64(i) * scale)
	}
	return out, nil
}
