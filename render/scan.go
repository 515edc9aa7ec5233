// Package render draws laser scans.
package render

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/rangesim/components/laser"
)

// ErrNoScan is returned when the source has not produced a scan yet.
var ErrNoScan = errors.New("no scan available until the laser is subscribed and updated")

// A ScanSource is a laser whose scans can be drawn.
type ScanSource interface {
	GetSamples() ([]laser.Sample, int)
	GetConfig() laser.Config
	IsDirty() bool
	ClearDirty()
}

// Options control what a ScanRenderer draws.
type Options struct {
	// ShowData fills the scanned area and marks bright returns.
	ShowData bool
	// ShowStrikes marks the point each ray struck.
	ShowStrikes bool
	// PixelsPerMeter scales the image. The image spans twice the laser's maximum range.
	PixelsPerMeter float64
}

// DefaultOptions draws the scanned area at 50 pixels per meter.
func DefaultOptions() Options {
	return Options{ShowData: true, PixelsPerMeter: 50}
}

var (
	dataColor   = color.NRGBA{R: 0, G: 0, B: 255, A: 26}
	strikeColor = color.NRGBA{R: 0, G: 0, B: 255, A: 204}
	brightColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	originColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
)

// ScanRenderer draws the latest scan of a source in the sensor's own frame, forward pointing
// right. It only redraws when the source is dirty.
type ScanRenderer struct {
	source ScanSource
	opts   Options

	mu     sync.Mutex
	cached image.Image
}

// NewScanRenderer returns a renderer of source.
func NewScanRenderer(source ScanSource, opts Options) *ScanRenderer {
	if opts.PixelsPerMeter <= 0 {
		opts.PixelsPerMeter = DefaultOptions().PixelsPerMeter
	}
	return &ScanRenderer{source: source, opts: opts}
}

// Next returns an image of the latest scan and clears the source's dirty flag.
func (r *ScanRenderer) Next(ctx context.Context) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil && !r.source.IsDirty() {
		return r.cached, nil
	}

	samples, n := r.source.GetSamples()
	if n == 0 {
		return nil, ErrNoScan
	}
	conf := r.source.GetConfig()
	// a resize may be pending until the next update
	conf.SampleCount = n
	r.source.ClearDirty()

	img := r.draw(samples, conf)
	r.cached = img
	return img, nil
}

func (r *ScanRenderer) draw(samples []laser.Sample, conf laser.Config) image.Image {
	scale := r.opts.PixelsPerMeter
	side := int(math.Ceil(2*conf.RangeMax*scale)) + 1
	center := float64(side) / 2
	toPixel := func(p r2.Point) (float64, float64) {
		return center + p.X*scale, center - p.Y*scale
	}

	dc := gg.NewContext(side, side)
	dc.SetColor(color.White)
	dc.Clear()

	points := HitPoints(samples, conf)
	if r.opts.ShowData {
		dc.MoveTo(center, center)
		for _, p := range points {
			dc.LineTo(toPixel(p))
		}
		dc.ClosePath()
		dc.SetColor(dataColor)
		dc.Fill()

		dc.SetColor(brightColor)
		for i, s := range samples {
			if s.Reflectance > 0 {
				x, y := toPixel(points[i])
				dc.DrawCircle(x, y, 3)
				dc.Fill()
			}
		}
	}
	if r.opts.ShowStrikes {
		dc.SetColor(strikeColor)
		for _, p := range points {
			x, y := toPixel(p)
			dc.DrawPoint(x, y, 2)
			dc.Fill()
		}
	}

	dc.SetColor(originColor)
	dc.DrawCircle(center, center, 2)
	dc.Fill()
	return dc.Image()
}

// Close releases the cached image.
func (r *ScanRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	return nil
}

// HitPoints returns where each sample struck, in the sensor's frame with +X forward.
func HitPoints(samples []laser.Sample, conf laser.Config) []r2.Point {
	points := make([]r2.Point, len(samples))
	if len(samples) < 2 {
		return points
	}
	conf.SampleCount = len(samples)
	for i, s := range samples {
		sin, cos := math.Sincos(conf.Bearing(i))
		points[i] = r2.Point{X: s.Range * cos, Y: s.Range * sin}
	}
	return points
}
