// Package chart rasterizes declarative charts into images.
package chart

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/framecast/framecast/pkg/source"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var (
	ErrEmpty = errors.New("chart has no data")
	ErrSize  = errors.New("bad chart size")
)

// Margins of the plot area in pixels.
type Margins struct{ Top, Right, Bottom, Left int }

type Rasterizer struct {
	Margins Margins
	face    font.Face
}

func New() *Rasterizer {
	return &Rasterizer{
		Margins: Margins{Top: 28, Right: 72, Bottom: 12, Left: 12},
		face:    basicfont.Face7x13,
	}
}

type scale struct {
	x0, x1, y0, y1 float64
	area           image.Rectangle
}

func (s scale) px(p source.Point) (float32, float32) {
	x := float64(s.area.Min.X) + (p.X-s.x0)/(s.x1-s.x0)*float64(s.area.Dx())
	y := float64(s.area.Min.Y) + (1-(p.Y-s.y0)/(s.y1-s.y0))*float64(s.area.Dy())
	return float32(x), float32(y)
}

// Rasterize draws the chart into a new w×h image.
func (r *Rasterizer) Rasterize(c source.ChartLike, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %vx%v", ErrSize, w, h)
	}
	sc, err := r.scale(c, w, h)
	if err != nil {
		return nil, err
	}

	bg, fg := c.Background, c.Foreground
	if bg.A == 0 {
		bg = color.RGBA{A: 255}
	}
	if fg.A == 0 {
		fg = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	r.grid(img, c.GridLines, sc, mix(bg, fg, 0.2), fg)

	z := vector.NewRasterizer(w, h)
	for _, s := range c.Series {
		if len(s.Points) < 2 {
			continue
		}
		z.Reset(w, h)
		stroke(z, s, sc)
		col := s.Color
		if col.A == 0 {
			col = fg
		}
		z.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{})
	}

	if c.Title != "" {
		r.text(img, c.Title, r.Margins.Left, 8, fg)
	}
	return img, nil
}

// scale finds the value ranges and the plot area.
func (r *Rasterizer) scale(c source.ChartLike, w, h int) (scale, error) {
	x0, x1, y0, y1 := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	n := 0
	for _, s := range c.Series {
		for _, p := range s.Points {
			if !finite(p.X) || !finite(p.Y) {
				continue
			}
			x0, x1 = math.Min(x0, p.X), math.Max(x1, p.X)
			y0, y1 = math.Min(y0, p.Y), math.Max(y1, p.Y)
			n++
		}
	}
	if n == 0 {
		return scale{}, ErrEmpty
	}
	if c.XMax > c.XMin {
		x0, x1 = c.XMin, c.XMax
	}
	if c.YMax > c.YMin {
		y0, y1 = c.YMin, c.YMax
	} else {
		pad := (y1 - y0) * 0.05
		y0, y1 = y0-pad, y1+pad
	}
	if x1 <= x0 {
		x0, x1 = x0-1, x1+1
	}
	if y1 <= y0 {
		y0, y1 = y0-1, y1+1
	}

	m := r.Margins
	area := image.Rect(m.Left, m.Top, w-m.Right, h-m.Bottom)
	if area.Dx() < 8 || area.Dy() < 8 {
		area = image.Rect(0, 0, w, h)
	}
	return scale{x0: x0, x1: x1, y0: y0, y1: y1, area: area}, nil
}

func (r *Rasterizer) grid(img *image.RGBA, lines int, sc scale, line, label color.RGBA) {
	if lines <= 0 {
		return
	}
	for i := 0; i <= lines; i++ {
		v := sc.y0 + (sc.y1-sc.y0)*float64(i)/float64(lines)
		_, y := sc.px(source.Point{X: sc.x0, Y: v})
		yy := int(y)
		for x := sc.area.Min.X; x < sc.area.Max.X; x++ {
			img.SetRGBA(x, yy, line)
		}
		if sc.area.Max.X+4 < img.Bounds().Max.X {
			r.text(img, fmt.Sprintf("%.2f", v), sc.area.Max.X+4, yy-6, label)
		}
	}
}

func (r *Rasterizer) text(img *image.RGBA, s string, x, y int, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// stroke adds every segment of the series as a quad of the series width.
func stroke(z *vector.Rasterizer, s source.Series, sc scale) {
	half := float32(s.Width / 2)
	if half <= 0 {
		half = 0.75
	}
	var px, py float32
	prev := false
	for _, p := range s.Points {
		if !finite(p.X) || !finite(p.Y) {
			prev = false
			continue
		}
		x, y := sc.px(p)
		if prev {
			dx, dy := x-px, y-py
			l := float32(math.Hypot(float64(dx), float64(dy)))
			if l > 0 {
				nx, ny := -dy/l*half, dx/l*half
				z.MoveTo(px+nx, py+ny)
				z.LineTo(x+nx, y+ny)
				z.LineTo(x-nx, y-ny)
				z.LineTo(px-nx, py-ny)
				z.ClosePath()
			}
		}
		px, py, prev = x, y, true
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// mix blends a into b by k.
func mix(a, b color.RGBA, k float64) color.RGBA {
	f := func(x, y uint8) uint8 { return uint8(float64(x)*(1-k) + float64(y)*k) }
	return color.RGBA{R: f(a.R, b.R), G: f(a.G, b.G), B: f(a.B, b.B), A: 255}
}
