package render

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/rangesim/components/laser"
	"go.viam.com/rangesim/utils"
)

// RangePlot builds a chart of range against bearing in degrees. Bright returns are marked.
func RangePlot(title string, samples []laser.Sample, conf laser.Config) (*plot.Plot, error) {
	if len(samples) < 2 {
		return nil, ErrNoScan
	}
	conf.SampleCount = len(samples)

	all := make(plotter.XYs, len(samples))
	var bright plotter.XYs
	for i, s := range samples {
		xy := plotter.XY{X: utils.RadToDeg(conf.Bearing(i)), Y: s.Range}
		all[i] = xy
		if s.Reflectance > 0 {
			bright = append(bright, xy)
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "bearing (deg)"
	p.Y.Label.Text = "range (m)"
	p.Y.Min = 0
	p.Y.Max = conf.RangeMax

	line, err := plotter.NewLine(all)
	if err != nil {
		return nil, errors.Wrap(err, "failed to plot ranges")
	}
	p.Add(line, plotter.NewGrid())
	if len(bright) > 0 {
		scatter, err := plotter.NewScatter(bright)
		if err != nil {
			return nil, errors.Wrap(err, "failed to plot bright returns")
		}
		p.Add(scatter)
		p.Legend.Add("bright", scatter)
	}
	return p, nil
}

// PlotRanges writes a range chart to path. The format follows the file extension.
func PlotRanges(title string, samples []laser.Sample, conf laser.Config, path string) error {
	p, err := RangePlot(title, samples, conf)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
