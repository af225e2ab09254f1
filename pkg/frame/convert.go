package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	ScaleNearestNeighbour = iota // nearest neighbour interpolation
	ScaleBilinear                // bilinear interpolation
	ScaleCatmullRom              // slow but sharp, for downscaling big images
)

var ErrEmptyImage = errors.New("empty image")

// Resize scales src into out filling the whole out bounds.
func Resize(scaleType int, src image.Image, out draw.Image) {
	switch scaleType {
	case ScaleCatmullRom:
		draw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	case ScaleBilinear:
		draw.ApproxBiLinear.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	default:
		draw.NearestNeighbor.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
}

// FromImage normalizes any image into an opaque w×h RGB frame.
// Images of other sizes are rescaled, transparent pixels are
// composed over black.
func FromImage(img image.Image, w, h int, scaleType int) (*Frame, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyImage, b)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: target %vx%v", ErrShape, w, h)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) || b.Dx() != w || b.Dy() != h {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		if b.Dx() == w && b.Dy() == h {
			draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		} else {
			Resize(scaleType, img, rgba)
		}
	}
	return FromRGBA(rgba), nil
}

// FromRGBA drops the alpha channel of premultiplied RGBA pixels.
func FromRGBA(img *image.RGBA) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	for y := 0; y < f.H; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := f.Pix[y*f.Stride():]
		for x := 0; x < f.W; x++ {
			dst[x*Channels] = src[x*4]
			dst[x*Channels+1] = src[x*4+1]
			dst[x*Channels+2] = src[x*4+2]
		}
	}
	return f
}

// Fill creates a frame of the single color.
func Fill(w, h int, c color.RGBA) *Frame {
	f := New(w, h)
	for i := 0; i < len(f.Pix); i += Channels {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c.R, c.G, c.B
	}
	return f
}
