// Package grid models sets of (lat, lon) sample points with a row-major
// logical shape, and scalar fields bound to them. It is the in-memory core
// consumed by the advection projector: upstream format readers hand it plain
// float64 arrays plus coordinate metadata, and downstream consumers read
// plain arrays back out.
package grid

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

// Sentinel errors for the construction-time failure modes. All are
// synchronous and non-retryable; the package checks shapes defensively at
// every boundary because a silent mismatch would produce wrong numbers
// instead of a clean failure.
var (
	// ErrEmptyGrid is returned when an index or grid would cover zero points.
	ErrEmptyGrid = errors.New("grid has no points")

	// ErrInvalidGrid is returned for degenerate axis parameters such as a
	// zero range step.
	ErrInvalidGrid = errors.New("invalid grid parameters")

	// ErrShapeMismatch is returned when arrays or fields disagree about
	// their logical shape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrReshape is returned when a value count cannot fill the destination
	// shape.
	ErrReshape = errors.New("value count does not match shape")
)

// Shape is the logical (rows, cols) form of a flattened row-major array.
type Shape struct {
	Rows int
	Cols int
}

// N returns the total element count.
func (s Shape) N() int { return s.Rows * s.Cols }

// Flat converts a (row, col) pair to a flat row-major index.
func (s Shape) Flat(r, c int) int { return r*s.Cols + c }

// Split converts a flat row-major index to its (row, col) pair.
func (s Shape) Split(i int) (r, c int) { return i / s.Cols, i % s.Cols }

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Point is a single (lat, lon) sample location in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Grid is an immutable ordered set of (lat, lon) sample points with a
// row-major logical shape: flat index i corresponds to (i/Cols, i%Cols).
// Grids are built once per data source or resampling target and shared
// read-only between any number of fields.
type Grid struct {
	lats  []float64 // flattened, len == shape.N()
	lons  []float64
	shape Shape
	fp    uint64
}

// FromAxes builds the outer-product grid of two 1-D coordinate axes. The
// point list is row-major with lat varying slowest, and the shape is
// (len(lats), len(lons)).
func FromAxes(lats, lons []float64) (*Grid, error) {
	if len(lats) == 0 || len(lons) == 0 {
		return nil, fmt.Errorf("%w: axes %dx%d", ErrEmptyGrid, len(lats), len(lons))
	}
	shape := Shape{Rows: len(lats), Cols: len(lons)}
	allLats := make([]float64, 0, shape.N())
	allLons := make([]float64, 0, shape.N())
	for _, lat := range lats {
		for _, lon := range lons {
			allLats = append(allLats, lat)
			allLons = append(allLons, lon)
		}
	}
	return newGrid(allLats, allLons, shape), nil
}

// FromRanges builds a grid from explicit min/max/step axis ranges. Each axis
// is generated with arithmetic-range semantics: min inclusive, stepping by
// step, stopping strictly before max. A zero step on either axis is
// ErrInvalidGrid; ranges that generate an empty axis surface as ErrEmptyGrid
// from FromAxes.
func FromRanges(latMin, latMax, latStep, lonMin, lonMax, lonStep float64) (*Grid, error) {
	if latStep == 0 || lonStep == 0 {
		return nil, fmt.Errorf("%w: zero axis step", ErrInvalidGrid)
	}
	return FromAxes(arange(latMin, latMax, latStep), arange(lonMin, lonMax, lonStep))
}

// FromPoints builds a grid from pre-flattened coordinate arrays, for sources
// whose grids are not outer products of two axes (projected GRIB grids, for
// example). Both arrays must have exactly shape.N() elements.
func FromPoints(lats, lons []float64, shape Shape) (*Grid, error) {
	if shape.N() == 0 {
		return nil, fmt.Errorf("%w: shape %v", ErrEmptyGrid, shape)
	}
	if len(lats) != shape.N() || len(lons) != shape.N() {
		return nil, fmt.Errorf("%w: %d lats, %d lons for shape %v",
			ErrShapeMismatch, len(lats), len(lons), shape)
	}
	allLats := make([]float64, len(lats))
	allLons := make([]float64, len(lons))
	copy(allLats, lats)
	copy(allLons, lons)
	return newGrid(allLats, allLons, shape), nil
}

func newGrid(lats, lons []float64, shape Shape) *Grid {
	g := &Grid{lats: lats, lons: lons, shape: shape}
	g.fp = fingerprint(lats, lons, shape)
	return g
}

// arange reproduces half-open arithmetic range stepping: start inclusive,
// stops strictly before stop. A step pointing away from stop yields an
// empty axis.
func arange(start, stop, step float64) []float64 {
	n := int(math.Ceil((stop - start) / step))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Shape returns the logical (rows, cols) shape.
func (g *Grid) Shape() Shape { return g.shape }

// Len returns the number of sample points.
func (g *Grid) Len() int { return g.shape.N() }

// Point returns the sample point at flat index i.
func (g *Grid) Point(i int) Point { return Point{Lat: g.lats[i], Lon: g.lons[i]} }

// Pairs returns the flattened (lat, lon) point list in row-major order.
func (g *Grid) Pairs() []Point {
	pts := make([]Point, g.Len())
	for i := range pts {
		pts[i] = Point{Lat: g.lats[i], Lon: g.lons[i]}
	}
	return pts
}

// LatsLons returns the coordinates as two parallel channels. The returned
// slices are copies; the grid itself never changes after construction.
func (g *Grid) LatsLons() (lats, lons []float64) {
	lats = make([]float64, len(g.lats))
	lons = make([]float64, len(g.lons))
	copy(lats, g.lats)
	copy(lons, g.lons)
	return lats, lons
}

// Fingerprint returns a content-derived identity for the grid, covering the
// shape and every coordinate. Two grids that merely share a shape but hold
// different coordinates get different fingerprints, so shape-only index
// collisions cannot occur.
func (g *Grid) Fingerprint() uint64 { return g.fp }

// Equal reports whether two grids have identical shape and coordinates.
func (g *Grid) Equal(o *Grid) bool {
	if g == o {
		return true
	}
	if o == nil || g.shape != o.shape {
		return false
	}
	for i := range g.lats {
		if g.lats[i] != o.lats[i] || g.lons[i] != o.lons[i] {
			return false
		}
	}
	return true
}

func fingerprint(lats, lons []float64, shape Shape) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(u uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(u >> (8 * i))
		}
		h.Write(buf[:])
	}
	put(uint64(shape.Rows))
	put(uint64(shape.Cols))
	for i := range lats {
		put(math.Float64bits(lats[i]))
		put(math.Float64bits(lons[i]))
	}
	return h.Sum64()
}
