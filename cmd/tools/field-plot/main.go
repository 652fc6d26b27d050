// Command field-plot renders a gridded field JSON envelope as a heatmap
// PNG, for eyeballing nowcast inputs and forecast frames.
package main

import (
	"flag"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nowcast/internal/fieldio"
	"github.com/banshee-data/nowcast/internal/grid"
)

var (
	inPath  = flag.String("in", "", "Field JSON to render (required)")
	outPath = flag.String("out", "field.png", "Output PNG path")
	title   = flag.String("title", "", "Plot title")
)

func main() {
	flag.Parse()
	if *inPath == "" {
		flag.Usage()
		log.Fatal("missing required flag: -in")
	}

	field, err := fieldio.Load(*inPath, nil)
	if err != nil {
		log.Fatalf("load field: %v", err)
	}

	if err := renderHeatmap(field, *title, *outPath); err != nil {
		log.Fatalf("render: %v", err)
	}
	log.Printf("wrote %s (%v)", *outPath, field.Shape())
}

// fieldGrid adapts a gridded field to plotter.GridXYZ. Rows map to the Y
// axis and columns to X; axis coordinates come from the first row/column of
// the grid, which is exact for axis-built grids and an approximation for
// curvilinear ones.
type fieldGrid struct {
	f *grid.Field
}

func (fg fieldGrid) Dims() (c, r int) {
	s := fg.f.Shape()
	return s.Cols, s.Rows
}

func (fg fieldGrid) Z(c, r int) float64 { return fg.f.At(r, c) }

func (fg fieldGrid) X(c int) float64 {
	return fg.f.Grid().Point(c).Lon
}

func (fg fieldGrid) Y(r int) float64 {
	s := fg.f.Shape()
	return fg.f.Grid().Point(r * s.Cols).Lat
}

func renderHeatmap(f *grid.Field, title, outPath string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(fieldGrid{f: f}, pal)
	p.Add(hm)

	return p.Save(10*vg.Inch, 8*vg.Inch, outPath)
}
