package advect

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/nowcast/internal/grid"
	"github.com/banshee-data/nowcast/internal/testutil"
	"github.com/banshee-data/nowcast/internal/units"
)

func TestNewProjector_ShapeMismatch(t *testing.T) {
	target := testutil.MakeUniformField(t, 2, 2, 1)
	ok := testutil.MakeUniformField(t, 2, 2, 0)
	bad := testutil.MakeUniformField(t, 3, 2, 0)

	if _, err := NewProjector(target, bad, ok); !errors.Is(err, grid.ErrShapeMismatch) {
		t.Errorf("u mismatch: err = %v, want ErrShapeMismatch", err)
	}
	if _, err := NewProjector(target, ok, bad); !errors.Is(err, grid.ErrShapeMismatch) {
		t.Errorf("v mismatch: err = %v, want ErrShapeMismatch", err)
	}
	if _, err := NewProjector(nil, ok, ok); !errors.Is(err, grid.ErrShapeMismatch) {
		t.Errorf("nil target: err = %v, want ErrShapeMismatch", err)
	}
}

func TestStep_ZeroWindIsIdentity(t *testing.T) {
	target := testutil.MakeField(t, 3, 3, []float64{5, 3, 8, 1, 9, 2, 7, 4, 6})
	zero := testutil.MakeUniformField(t, 3, 3, 0)

	p, err := NewProjector(target, zero, zero)
	testutil.AssertNoError(t, err)

	for step := 0; step < 5; step++ {
		got, err := p.Step(context.Background(), 60)
		if err != nil {
			t.Fatalf("Step %d: %v", step, err)
		}
		if diff := cmp.Diff(target.Values(), got); diff != "" {
			t.Fatalf("step %d drifted under zero wind (-want +got):\n%s", step, diff)
		}
	}
	if p.Steps() != 5 {
		t.Errorf("Steps = %d, want 5", p.Steps())
	}
}

func TestStep_OneCellEastShiftClampsEdge(t *testing.T) {
	// One-degree spacing, wind of exactly one degree per second at the
	// equator, one-second step: every value shifts east by one cell and
	// the west edge repeats instead of wrapping.
	target := testutil.MakeField(t, 1, 5, []float64{1, 2, 3, 4, 5})
	u := testutil.MakeUniformField(t, 1, 5, units.MetersPerDegree)
	v := testutil.MakeUniformField(t, 1, 5, 0)

	p, err := NewProjector(target, u, v)
	testutil.AssertNoError(t, err)
	got, err := p.Step(context.Background(), 1)
	testutil.AssertNoError(t, err)
	want := []float64{1, 1, 2, 3, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("east shift mismatch (-want +got):\n%s", diff)
	}

	// A second identical step shifts once more.
	got, err = p.Step(context.Background(), 1)
	testutil.AssertNoError(t, err)
	want = []float64{1, 1, 1, 2, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("second east shift mismatch (-want +got):\n%s", diff)
	}
}

func TestStep_VDisplacementComesFromVField(t *testing.T) {
	// Pure V wind shifts rows; a regression against deriving the V
	// displacement from the U field, which would leave the field fixed.
	target := testutil.MakeField(t, 5, 1, []float64{1, 2, 3, 4, 5})
	u := testutil.MakeUniformField(t, 5, 1, 0)
	v := testutil.MakeUniformField(t, 5, 1, units.MetersPerDegree)

	p, err := NewProjector(target, u, v)
	testutil.AssertNoError(t, err)
	got, err := p.Step(context.Background(), 1)
	testutil.AssertNoError(t, err)
	want := []float64{1, 1, 2, 3, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("row shift mismatch (-want +got):\n%s", diff)
	}
}

func TestStep_ULatitudeScaling(t *testing.T) {
	// At latitude 60 the U conversion is halved by cos(lat), so the same
	// wind needs a 2-second step to move one cell. The fixture grids all
	// start at the origin, so this one is built explicitly.
	lats := []float64{60}
	lons := []float64{0, 1, 2, 3, 4}
	target, err := grid.FieldFromAxes([]float64{1, 2, 3, 4, 5}, lats, lons, nil)
	testutil.AssertNoError(t, err)
	u, err := grid.FieldFromAxes([]float64{units.MetersPerDegree, units.MetersPerDegree,
		units.MetersPerDegree, units.MetersPerDegree, units.MetersPerDegree}, lats, lons, nil)
	testutil.AssertNoError(t, err)
	v, err := grid.FieldFromAxes(make([]float64, 5), lats, lons, nil)
	testutil.AssertNoError(t, err)

	p, err := NewProjector(target, u, v)
	testutil.AssertNoError(t, err)
	got, err := p.Step(context.Background(), 2)
	testutil.AssertNoError(t, err)
	want := []float64{1, 1, 2, 3, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lat-scaled shift mismatch (-want +got):\n%s", diff)
	}
}

func TestStep_FractionalDisplacementInterpolates(t *testing.T) {
	// Half-cell displacement lands between samples, so outputs are
	// bilinear blends of neighbours.
	target := testutil.MakeField(t, 1, 3, []float64{0, 2, 4})
	u := testutil.MakeUniformField(t, 1, 3, units.MetersPerDegree/2)
	v := testutil.MakeUniformField(t, 1, 3, 0)

	p, err := NewProjector(target, u, v)
	testutil.AssertNoError(t, err)
	got, err := p.Step(context.Background(), 1)
	testutil.AssertNoError(t, err)
	testutil.AssertValuesClose(t, got, []float64{0, 1, 3}, 1e-9)
}

func TestStep_VariableDurations(t *testing.T) {
	// Two half-second steps move a linear ramp the same as one one-second
	// step away from the clamped edge.
	u := testutil.MakeUniformField(t, 1, 8, units.MetersPerDegree)
	v := testutil.MakeUniformField(t, 1, 8, 0)

	twice, err := NewProjector(testutil.MakeRampField(t, 1, 8), u, v)
	testutil.AssertNoError(t, err)
	if _, err := twice.Step(context.Background(), 0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if _, err := twice.Step(context.Background(), 0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}

	once, err := NewProjector(testutil.MakeRampField(t, 1, 8), u, v)
	testutil.AssertNoError(t, err)
	if _, err := once.Step(context.Background(), 1); err != nil {
		t.Fatalf("Step: %v", err)
	}

	a, b := twice.Values(), once.Values()
	// Skip the clamped west edge cells, whose histories differ by design.
	for i := 2; i < len(a); i++ {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Errorf("cell %d: two half steps %v vs one full step %v", i, a[i], b[i])
		}
	}
}

func TestStep_DoesNotMutateInputs(t *testing.T) {
	target := testutil.MakeField(t, 2, 2, []float64{1, 2, 3, 4})
	u := testutil.MakeUniformField(t, 2, 2, 5)
	v := testutil.MakeUniformField(t, 2, 2, -5)
	wantTarget := target.Values()
	wantU := u.Values()
	wantV := v.Values()

	p, err := NewProjector(target, u, v)
	testutil.AssertNoError(t, err)
	for i := 0; i < 3; i++ {
		if _, err := p.Step(context.Background(), 600); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	if diff := cmp.Diff(wantTarget, target.Values()); diff != "" {
		t.Errorf("target mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantU, u.Values()); diff != "" {
		t.Errorf("u mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantV, v.Values()); diff != "" {
		t.Errorf("v mutated (-want +got):\n%s", diff)
	}
}

func TestRun_SequenceAndCancellation(t *testing.T) {
	target := testutil.MakeField(t, 1, 5, []float64{1, 2, 3, 4, 5})
	u := testutil.MakeUniformField(t, 1, 5, units.MetersPerDegree)
	v := testutil.MakeUniformField(t, 1, 5, 0)

	p, err := NewProjector(target, u, v)
	testutil.AssertNoError(t, err)
	seq, err := p.Run(context.Background(), 3, 1)
	testutil.AssertNoError(t, err)
	if len(seq) != 3 {
		t.Fatalf("Run returned %d frames, want 3", len(seq))
	}
	if diff := cmp.Diff([]float64{1, 1, 2, 3, 4}, seq[0]); diff != "" {
		t.Errorf("frame 0 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 1, 1, 1, 2}, seq[2]); diff != "" {
		t.Errorf("frame 2 mismatch (-want +got):\n%s", diff)
	}

	// The frames are copies, not views of projector state.
	seq[0][0] = 99
	if got := p.Values()[0]; got == 99 {
		t.Error("Run frames alias projector state")
	}

	// A cancelled context stops before the next step.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p2, err := NewProjector(testutil.MakeField(t, 1, 5, []float64{1, 2, 3, 4, 5}), u, v)
	testutil.AssertNoError(t, err)
	got, err := p2.Run(ctx, 3, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Run err = %v, want context.Canceled", err)
	}
	if len(got) != 0 {
		t.Errorf("cancelled Run produced %d frames, want 0", len(got))
	}
	if p2.Steps() != 0 {
		t.Errorf("cancelled Run advanced %d steps, want 0", p2.Steps())
	}
}

func TestWithWorkers_AgreesWithSerial(t *testing.T) {
	// Shard count must not change results: each cell depends only on its
	// own inputs.
	const rows, cols = 7, 5
	vals := make([]float64, rows*cols)
	for i := range vals {
		vals[i] = float64((i*31)%17) - 8
	}
	uv := make([]float64, len(vals))
	for i := range uv {
		uv[i] = float64((i*13)%9-4) * 1000
	}

	run := func(workers int) []float64 {
		p, err := NewProjector(
			testutil.MakeField(t, rows, cols, vals),
			testutil.MakeField(t, rows, cols, uv),
			testutil.MakeField(t, rows, cols, uv),
			WithWorkers(workers),
		)
		testutil.AssertNoError(t, err)
		if _, err := p.Step(context.Background(), 30); err != nil {
			t.Fatalf("Step: %v", err)
		}
		return p.Values()
	}

	serial := run(1)
	for _, workers := range []int{2, 3, 8} {
		got := run(workers)
		if diff := cmp.Diff(serial, got); diff != "" {
			t.Errorf("workers=%d diverged from serial (-want +got):\n%s", workers, diff)
		}
	}
}
