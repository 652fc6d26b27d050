package grid

import (
	"container/heap"
	"fmt"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index is a static nearest-neighbour structure over a grid's flattened
// point list. Distance is planar Euclidean distance on the raw (lat, lon)
// values, with no great-circle correction; the resampling pipeline depends
// on this exact behaviour, so do not swap in geodesic distance without a
// reference comparison. An Index is read-only once built and safe for
// concurrent queries without locking.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// indexedPoint is a kd-tree entry carrying its flat grid index.
type indexedPoint struct {
	lat, lon float64
	idx      int
}

// Compare implements kdtree.Comparable.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.lat - q.lat
	case 1:
		return p.lon - q.lon
	default:
		panic("grid: illegal dimension")
	}
}

// Dims implements kdtree.Comparable.
func (p indexedPoint) Dims() int { return 2 }

// Distance implements kdtree.Comparable. It returns the squared planar
// distance; ordering is identical to true Euclidean distance.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	dLat := p.lat - q.lat
	dLon := p.lon - q.lon
	return dLat*dLat + dLon*dLon
}

// indexedPoints satisfies kdtree.Interface.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }

func (p indexedPoints) Len() int { return len(p) }

func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{points: p, dim: d},
		kdtree.MedianOfRandoms(pointPlane{points: p, dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer over one
// dimension of indexedPoints.
type pointPlane struct {
	points indexedPoints
	dim    kdtree.Dim
}

func (p pointPlane) Len() int { return len(p.points) }

func (p pointPlane) Less(i, j int) bool {
	switch p.dim {
	case 0:
		return p.points[i].lat < p.points[j].lat
	case 1:
		return p.points[i].lon < p.points[j].lon
	default:
		panic("grid: illegal dimension")
	}
}

func (p pointPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{points: p.points[start:end], dim: p.dim}
}

// BuildIndex constructs an Index over exactly the given points. Each stored
// point remembers its position in the input slice, which is what queries
// return. Building over zero points is ErrEmptyGrid.
func BuildIndex(points []Point) (*Index, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: cannot index zero points", ErrEmptyGrid)
	}
	entries := make(indexedPoints, len(points))
	for i, p := range points {
		entries[i] = indexedPoint{lat: p.Lat, lon: p.Lon, idx: i}
	}
	return &Index{tree: kdtree.New(entries, false), n: len(points)}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return ix.n }

// Nearest returns the flat index of the stored point closest to p.
func (ix *Index) Nearest(p Point) int {
	got, _ := ix.tree.Nearest(indexedPoint{lat: p.Lat, lon: p.Lon})
	return got.(indexedPoint).idx
}

// KNearest returns the flat indices of the k stored points closest to p,
// ordered nearest first. The result always has slice arity, even for k=1,
// so call sites never special-case a scalar. If k exceeds the number of
// stored points, all points are returned.
func (ix *Index) KNearest(p Point, k int) []int {
	if k <= 0 {
		return nil
	}
	if k > ix.n {
		k = ix.n
	}
	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, indexedPoint{lat: p.Lat, lon: p.Lon})

	// The keeper is a max-heap on distance, possibly still holding its
	// infinite-distance sentinel; pop everything and reverse into
	// nearest-first order.
	out := make([]int, 0, k)
	for keeper.Heap.Len() > 0 {
		item := heap.Pop(keeper).(kdtree.ComparableDist)
		if item.Comparable == nil {
			continue
		}
		out = append(out, item.Comparable.(indexedPoint).idx)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
