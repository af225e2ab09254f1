// Package source defines what a primary frame source may produce
// and contains the built-in figure builders.
package source

import (
	"context"
	"image"
	"image/color"
)

// Renderable is the result of a figure builder.
// It is either a ChartLike or a RasterImage, nil stands for no picture.
type Renderable interface {
	renderable()
}

// ChartLike is a declarative chart that still needs rasterization.
type ChartLike struct {
	Title      string
	Series     []Series
	Background color.RGBA
	Foreground color.RGBA
	// X and Y value ranges, zero width ranges are computed from the data.
	XMin, XMax float64
	YMin, YMax float64
	GridLines  int
}

type Series struct {
	Name   string
	Points []Point
	Color  color.RGBA
	Width  float64
}

type Point struct{ X, Y float64 }

// RasterImage is an already rasterized picture of any size and color model.
type RasterImage struct {
	Image image.Image
}

func (ChartLike) renderable()   {}
func (RasterImage) renderable() {}

// FigureBuilder produces a picture for the given moment of the stream.
// It may fail, block or return nil, all of which are expected.
type FigureBuilder interface {
	Build(ctx context.Context, elapsed float64, w, h int) (Renderable, error)
}

// BuilderFunc is an adapter to use ordinary functions as FigureBuilder.
type BuilderFunc func(ctx context.Context, elapsed float64, w, h int) (Renderable, error)

func (f BuilderFunc) Build(ctx context.Context, elapsed float64, w, h int) (Renderable, error) {
	return f(ctx, elapsed, w, h)
}
