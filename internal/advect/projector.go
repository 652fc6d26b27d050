// Package advect projects a gridded field forward in time by advecting it
// along a wind vector field: each destination cell is traced backward along
// the wind to find where its contents came from, and the prior field is
// interpolated there (semi-Lagrangian advection). Iterating the step yields
// a short-range nowcast sequence.
package advect

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/nowcast/internal/grid"
	"github.com/banshee-data/nowcast/internal/monitoring"
	"github.com/banshee-data/nowcast/internal/units"
)

// Projector advects a target field along u/v wind component fields. The
// three input fields are immutable; the projector's only mutable state is
// the current value array, replaced wholesale on every step.
type Projector struct {
	target *grid.Field
	u      *grid.Field
	v      *grid.Field

	shape   grid.Shape
	values  []float64
	steps   int
	workers int
	metrics *monitoring.Metrics
}

// Option configures a Projector.
type Option func(*Projector)

// WithWorkers sets the number of goroutines sharding the per-cell loops.
// Values below 1 fall back to runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(p *Projector) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// WithMetrics records step counts and durations into m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Projector) { p.metrics = m }
}

// NewProjector validates that target, u and v share one shape and seeds the
// working values from the target field. A mismatch is grid.ErrShapeMismatch
// and leaves no constructed state behind.
func NewProjector(target, u, v *grid.Field, opts ...Option) (*Projector, error) {
	if target == nil || u == nil || v == nil {
		return nil, fmt.Errorf("%w: projector needs target, u and v fields", grid.ErrShapeMismatch)
	}
	if target.Shape() != u.Shape() {
		return nil, fmt.Errorf("%w: target %v vs u %v", grid.ErrShapeMismatch, target.Shape(), u.Shape())
	}
	if target.Shape() != v.Shape() {
		return nil, fmt.Errorf("%w: target %v vs v %v", grid.ErrShapeMismatch, target.Shape(), v.Shape())
	}

	p := &Projector{
		target:  target,
		u:       u,
		v:       v,
		shape:   target.Shape(),
		values:  target.Values(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Steps returns the number of completed steps.
func (p *Projector) Steps() int { return p.steps }

// Values returns a copy of the current value array.
func (p *Projector) Values() []float64 {
	out := make([]float64, len(p.values))
	copy(out, p.values)
	return out
}

// Step advances the projector by duration seconds and returns the new value
// array (also retained as state for the next call). The returned slice is
// the projector's own backing array; callers that keep it across steps must
// copy it.
//
// For every cell the wind components are converted from m/s to deg/s (U
// carries the cos(lat) meridian-convergence scaling), multiplied by the
// duration, and subtracted from the cell's own row/col to locate the source
// position the arriving parcel left from. Source positions are clamped to
// the grid so edges hold their boundary value rather than pulling in
// out-of-bounds data, and the prior values are bilinearly interpolated
// there. Cells are independent within a step; the shards only synchronise
// at the step boundary. duration may vary between calls.
func (p *Projector) Step(ctx context.Context, duration float64) ([]float64, error) {
	start := time.Now()
	s := p.shape

	srcRows := make([]float64, s.N())
	srcCols := make([]float64, s.N())
	uRaw := p.u.Raw()
	vRaw := p.v.Raw()

	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range rowShards(s.Rows, p.workers) {
		shard := shard
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for r := shard.lo; r < shard.hi; r++ {
				for c := 0; c < s.Cols; c++ {
					i := s.Flat(r, c)
					lat := p.target.Grid().Point(i).Lat
					uDeg, vDeg := units.WindToDegreesPerSecond(uRaw[i], vRaw[i], lat)
					srcRows[i] = clampF(float64(r)-vDeg*duration, 0, float64(s.Rows))
					srcCols[i] = clampF(float64(c)-uDeg*duration, 0, float64(s.Cols))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := make([]float64, s.N())
	g, gctx = errgroup.WithContext(ctx)
	for _, shard := range rowShards(s.Rows, p.workers) {
		shard := shard
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for r := shard.lo; r < shard.hi; r++ {
				for c := 0; c < s.Cols; c++ {
					i := s.Flat(r, c)
					next[i] = grid.BilinearSample(p.values, s, srcRows[i], srcCols[i])
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.values = next
	p.steps++
	if p.metrics != nil {
		p.metrics.AdvectionSteps.Inc()
		p.metrics.StepDuration.Observe(time.Since(start).Seconds())
	}
	return p.values, nil
}

// Run performs steps advection steps of equal duration and returns a copy
// of the value array after each one. Cancellation is cooperative and
// checked between steps, never mid-step.
func (p *Projector) Run(ctx context.Context, steps int, duration float64) ([][]float64, error) {
	out := make([][]float64, 0, steps)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("advection cancelled after %d of %d steps: %w", i, steps, err)
		}
		if _, err := p.Step(ctx, duration); err != nil {
			return out, fmt.Errorf("step %d: %w", i+1, err)
		}
		out = append(out, p.Values())
	}
	return out, nil
}

type shard struct{ lo, hi int }

// rowShards splits rows into at most workers contiguous row ranges.
func rowShards(rows, workers int) []shard {
	if workers < 1 {
		workers = 1
	}
	if workers > rows {
		workers = rows
	}
	shards := make([]shard, 0, workers)
	per := rows / workers
	extra := rows % workers
	lo := 0
	for w := 0; w < workers; w++ {
		hi := lo + per
		if w < extra {
			hi++
		}
		shards = append(shards, shard{lo: lo, hi: hi})
		lo = hi
	}
	return shards
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
