// Package render draws the always available diagnostic frame
// that replaces the main picture when it can't be built.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/framecast/framecast/pkg/frame"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type Options struct {
	Background color.RGBA
	Text       color.RGBA
	Marker     color.RGBA
	// Amplitude of the marker swing as a fraction of the frame width.
	Amplitude float64
	// Period of the marker swing in seconds.
	Period float64
	Radius int
	Stroke int
}

func DefaultOptions() Options {
	return Options{
		Background: color.RGBA{R: 18, G: 18, B: 28, A: 255},
		Text:       color.RGBA{R: 240, G: 240, B: 240, A: 255},
		Marker:     color.RGBA{R: 200, G: 80, B: 80, A: 255},
		Amplitude:  0.25,
		Period:     2 * math.Pi,
		Radius:     40,
		Stroke:     4,
	}
}

// Diagnostic renders frames as a pure function of the elapsed time.
type Diagnostic struct {
	opts Options
}

func New(opts Options) *Diagnostic {
	def := DefaultOptions()
	if opts.Period <= 0 || math.IsNaN(opts.Period) || math.IsInf(opts.Period, 0) {
		opts.Period = def.Period
	}
	if math.IsNaN(opts.Amplitude) || math.IsInf(opts.Amplitude, 0) {
		opts.Amplitude = def.Amplitude
	}
	if opts.Radius <= 0 {
		opts.Radius = def.Radius
	}
	if opts.Stroke <= 0 {
		opts.Stroke = def.Stroke
	}
	return &Diagnostic{opts: opts}
}

// Render draws the background, the time label and the swinging marker.
// Negative or NaN time is treated as zero, non-positive sizes give an empty frame.
func (d *Diagnostic) Render(elapsed float64, w, h int) *frame.Frame {
	if w <= 0 || h <= 0 {
		return frame.New(0, 0)
	}
	if elapsed < 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		elapsed = 0
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, d.opts.Background)
	d.label(img, fmt.Sprintf("time: %.1fs", elapsed))

	phase := 2 * math.Pi * elapsed / d.opts.Period
	cx := int(float64(w)/2 + d.opts.Amplitude*float64(w)*math.Sin(phase))
	ring(img, cx, h/2, d.opts.Radius, d.opts.Stroke, d.opts.Marker)

	return frame.FromRGBA(img)
}

// label draws the text, a failed overlay leaves the frame without it.
func (d *Diagnostic) label(img *image.RGBA, text string) {
	defer func() { _ = recover() }()
	face := basicfont.Face7x13
	dr := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(d.opts.Text),
		Face: face,
		Dot:  fixed.P(10, 8+face.Ascent),
	}
	dr.DrawString(text)
}

func fill(img *image.RGBA, c color.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// ring draws a circle outline of the given stroke width
// that grows inward from the radius, clipped by the image bounds.
func ring(img *image.RGBA, cx, cy, r, stroke int, c color.RGBA) {
	outer := r * r
	in := r - stroke
	if in < 0 {
		in = 0
	}
	inner := in * in
	b := img.Bounds().Intersect(image.Rect(cx-r, cy-r, cx+r+1, cy+r+1))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := y - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := x - cx
			if d := dx*dx + dy*dy; d <= outer && d > inner {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
