package grid

import (
	"fmt"
	"math"
	"sync"
)

// Cell is a (row, col) position in a field's logical shape.
type Cell struct {
	Row int
	Col int
}

// Field binds a 2-D scalar array to a Grid. The value array is flat
// row-major with exactly grid.Len() elements; construction fails rather
// than coercing a mismatched count. The grid reference is shared and
// read-only.
type Field struct {
	values []float64
	grid   *Grid

	// Index resolution: either through the shared cache, or a private
	// lazily built index when no cache was supplied.
	cache     *IndexCache
	indexOnce sync.Once
	index     *Index
	indexErr  error
}

// NewField binds values to g. len(values) must equal g.Len(); anything else
// is ErrReshape. The cache may be nil, in which case the field builds a
// private index on first nearest-neighbour query instead of sharing one.
func NewField(values []float64, g *Grid, cache *IndexCache) (*Field, error) {
	if g == nil || g.Len() == 0 {
		return nil, fmt.Errorf("%w: field needs a non-empty grid", ErrEmptyGrid)
	}
	if len(values) != g.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %v",
			ErrReshape, len(values), g.Shape())
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return &Field{values: vals, grid: g, cache: cache}, nil
}

// FieldFromAxes is the convenience constructor for sources that supply a
// flat value array plus two 1-D coordinate axes: it builds the outer-product
// grid and binds the values to it.
func FieldFromAxes(values, lats, lons []float64, cache *IndexCache) (*Field, error) {
	g, err := FromAxes(lats, lons)
	if err != nil {
		return nil, err
	}
	return NewField(values, g, cache)
}

// Grid returns the coordinate grid the field is bound to.
func (f *Field) Grid() *Grid { return f.grid }

// Shape returns the field's logical shape.
func (f *Field) Shape() Shape { return f.grid.Shape() }

// At returns the value at (r, c) without bounds checking.
func (f *Field) At(r, c int) float64 { return f.values[f.grid.shape.Flat(r, c)] }

// Value returns the value at (r, c), or an error when the position is
// outside the field's shape.
func (f *Field) Value(r, c int) (float64, error) {
	s := f.grid.shape
	if r < 0 || r >= s.Rows {
		return 0, fmt.Errorf("%w: row %d outside %v", ErrShapeMismatch, r, s)
	}
	if c < 0 || c >= s.Cols {
		return 0, fmt.Errorf("%w: col %d outside %v", ErrShapeMismatch, c, s)
	}
	return f.values[s.Flat(r, c)], nil
}

// Values returns a copy of the flat row-major value array.
func (f *Field) Values() []float64 {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out
}

// Raw returns the backing value array without copying, for hot loops that
// promise not to modify it.
func (f *Field) Raw() []float64 { return f.values }

// spatialIndex resolves the field's index through the shared cache when one
// was supplied, or a private once-built index otherwise.
func (f *Field) spatialIndex() (*Index, error) {
	if f.cache != nil {
		return f.cache.GetOrBuild(f.grid)
	}
	f.indexOnce.Do(func() {
		f.index, f.indexErr = BuildIndex(f.grid.Pairs())
	})
	return f.index, f.indexErr
}

// NearestIndex returns the (row, col) of the sample point closest to the
// given coordinate.
func (f *Field) NearestIndex(lat, lon float64) (Cell, error) {
	cells, err := f.KNearestCells([]Point{{Lat: lat, Lon: lon}}, 1)
	if err != nil {
		return Cell{}, err
	}
	return cells[0][0], nil
}

// KNearestCells returns, for each query point, the (row, col) positions of
// the k nearest sample points, nearest first. One and many query points are
// handled uniformly; k=1 still yields one-element inner slices.
func (f *Field) KNearestCells(points []Point, k int) ([][]Cell, error) {
	ix, err := f.spatialIndex()
	if err != nil {
		return nil, err
	}
	shape := f.grid.shape
	out := make([][]Cell, len(points))
	for i, p := range points {
		idxs := ix.KNearest(p, k)
		cells := make([]Cell, len(idxs))
		for j, flat := range idxs {
			r, c := shape.Split(flat)
			cells[j] = Cell{Row: r, Col: c}
		}
		out[i] = cells
	}
	return out, nil
}

// ResampleTo produces a new field on target by picking, for every target
// point, the value at the single nearest source point. No interpolation or
// blending happens: every output value is some exact input value, which
// keeps categorical quantities (radar echo classes, for example) intact.
// The result's grid is exactly target.
func (f *Field) ResampleTo(target *Grid) (*Field, error) {
	if target == nil || target.Len() == 0 {
		return nil, fmt.Errorf("%w: resample target", ErrEmptyGrid)
	}
	ix, err := f.spatialIndex()
	if err != nil {
		return nil, err
	}
	shape := f.grid.shape
	gathered := make([]float64, target.Len())
	for i := 0; i < target.Len(); i++ {
		flat := ix.Nearest(target.Point(i))
		r, c := shape.Split(flat)
		gathered[i] = f.values[shape.Flat(r, c)]
	}
	out, err := NewField(gathered, target, f.cache)
	if err != nil {
		// Cannot normally occur: one scalar was gathered per target point.
		return nil, fmt.Errorf("resample gather: %w", err)
	}
	return out, nil
}

// Bilinear samples the value array at a fractional (row, col) coordinate
// with bilinear interpolation. Coordinates beyond the array edges clamp to
// the edge values; there is no wraparound.
func (f *Field) Bilinear(row, col float64) float64 {
	return BilinearSample(f.values, f.grid.shape, row, col)
}

// BilinearSample interpolates a flat row-major array of the given shape at a
// fractional (row, col) coordinate, clamping to the edges. It exists for hot
// loops that work on raw arrays instead of fields.
func BilinearSample(values []float64, s Shape, row, col float64) float64 {
	row = clamp(row, 0, float64(s.Rows-1))
	col = clamp(col, 0, float64(s.Cols-1))

	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	r1 := r0 + 1
	c1 := c0 + 1
	if r1 > s.Rows-1 {
		r1 = s.Rows - 1
	}
	if c1 > s.Cols-1 {
		c1 = s.Cols - 1
	}
	fr := row - float64(r0)
	fc := col - float64(c0)

	v00 := values[s.Flat(r0, c0)]
	v01 := values[s.Flat(r0, c1)]
	v10 := values[s.Flat(r1, c0)]
	v11 := values[s.Flat(r1, c1)]

	top := v00 + (v01-v00)*fc
	bot := v10 + (v11-v10)*fc
	return top + (bot-top)*fr
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
