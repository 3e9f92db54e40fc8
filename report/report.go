// Package report renders small diagnostic charts for served batches and
// captured frames.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/spritebatch/datasets"
	"github.com/Noofbiz/spritebatch/webcam"
)

// Tally accumulates per-class counts of served examples, keyed by series name
// (e.g. "train", "test").
type Tally struct {
	NumClasses int
	Counts     map[string][]int
}

// NewTally returns an empty tally for numClasses classes.
func NewTally(numClasses int) *Tally {
	return &Tally{NumClasses: numClasses, Counts: map[string][]int{}}
}

// Add counts the classes of b under series.
func (t *Tally) Add(series string, b *datasets.Batch) {
	counts, ok := t.Counts[series]
	if !ok {
		counts = make([]int, t.NumClasses)
		t.Counts[series] = counts
	}
	for c, n := range b.ClassCounts() {
		if c < len(counts) {
			counts[c] += n
		}
	}
}

// Total returns the number of examples counted under series.
func (t *Tally) Total(series string) int {
	total := 0
	for _, n := range t.Counts[series] {
		total += n
	}
	return total
}

// series returns the series names in a stable order.
func (t *Tally) series() []string {
	names := make([]string, 0, len(t.Counts))
	for name := range t.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var palette = []color.Color{
	color.RGBA{R: 20, G: 80, B: 200, A: 255},
	color.RGBA{R: 200, G: 30, B: 30, A: 255},
	color.RGBA{R: 40, G: 120, B: 40, A: 255},
	color.RGBA{R: 120, G: 120, B: 120, A: 255},
}

// PlotClassCounts writes a grouped bar chart of the tally to path. The image
// format follows the file extension (png, svg, pdf, ...).
func PlotClassCounts(t *Tally, title, path string) error {
	names := t.series()
	if len(names) == 0 {
		return errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "class"
	p.Y.Label.Text = "examples served"

	width := vg.Points(12)
	for i, name := range names {
		values := make(plotter.Values, t.NumClasses)
		for c, n := range t.Counts[name] {
			values[c] = float64(n)
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return errors.Wrapf(err, "bars for %s", name)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = palette[i%len(palette)]
		bars.Offset = width * vg.Length(float64(i)-float64(len(names)-1)/2)
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("%s (%d)", name, t.Total(name)), bars)
	}
	p.Legend.Top = true

	labels := make([]string, t.NumClasses)
	for c := range labels {
		labels[c] = fmt.Sprint(c)
	}
	p.NominalX(labels...)
	p.Add(plotter.NewGrid())

	return save(p, path)
}

// PlotFrameHistogram writes a histogram of the normalized values of f, all
// channels pooled, to path.
func PlotFrameHistogram(f *webcam.Frame, bins int, path string) error {
	if len(f.Data) == 0 {
		return errors.New("empty frame")
	}
	values := make(plotter.Values, len(f.Data))
	for i, v := range f.Data {
		values[i] = float64(v)
	}
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return errors.Wrap(err, "histogram")
	}
	h.FillColor = palette[0]

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Captured frame %dx%d", f.Side, f.Side)
	p.X.Label.Text = "normalized value"
	p.Y.Label.Text = "count"
	p.Add(h)
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
