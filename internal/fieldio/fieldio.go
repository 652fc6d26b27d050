// Package fieldio reads and writes the plain-array JSON envelope the
// nowcast binaries exchange with upstream format readers. Real GRIB/NetCDF
// decoding lives outside this repository; by the time data arrives here it
// is already flat float64 arrays plus coordinate metadata.
package fieldio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/banshee-data/nowcast/internal/grid"
)

// Envelope is the on-disk form of one gridded field. Axes form carries two
// 1-D coordinate axes; flattened form carries full per-point coordinate
// arrays plus an explicit shape for grids that are not outer products.
type Envelope struct {
	Lats   []float64 `json:"lats"`
	Lons   []float64 `json:"lons"`
	Values []float64 `json:"values"`
	Shape  []int     `json:"shape,omitempty"` // [rows, cols]; empty means axes form
}

// Load reads a field envelope from path and binds it to cache.
func Load(path string, cache *grid.IndexCache) (*grid.Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field file: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse field file %s: %w", path, err)
	}
	f, err := env.Field(cache)
	if err != nil {
		return nil, fmt.Errorf("field file %s: %w", path, err)
	}
	return f, nil
}

// Field constructs the gridded field the envelope describes.
func (e *Envelope) Field(cache *grid.IndexCache) (*grid.Field, error) {
	if len(e.Shape) == 0 {
		return grid.FieldFromAxes(e.Values, e.Lats, e.Lons, cache)
	}
	if len(e.Shape) != 2 {
		return nil, fmt.Errorf("%w: shape has %d dimensions, want 2", grid.ErrInvalidGrid, len(e.Shape))
	}
	g, err := grid.FromPoints(e.Lats, e.Lons, grid.Shape{Rows: e.Shape[0], Cols: e.Shape[1]})
	if err != nil {
		return nil, err
	}
	return grid.NewField(e.Values, g, cache)
}

// FromField captures a field into envelope form, always flattened with an
// explicit shape so the output round-trips for any grid.
func FromField(f *grid.Field) *Envelope {
	lats, lons := f.Grid().LatsLons()
	s := f.Shape()
	return &Envelope{
		Lats:   lats,
		Lons:   lons,
		Values: f.Values(),
		Shape:  []int{s.Rows, s.Cols},
	}
}

// Write stores an envelope as JSON at path.
func Write(path string, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode field: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write field file: %w", err)
	}
	return nil
}
