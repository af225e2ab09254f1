// Package frame contains the raw RGB24 frame that is fed into the encoder.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of bytes per pixel (R, G, B).
const Channels = 3

var ErrShape = errors.New("wrong frame shape")

// Frame is a packed RGB24 pixel buffer without padding.
// Frames are not changed after creation.
type Frame struct {
	Pix  []byte
	W, H int
}

// New allocates a black frame.
func New(w, h int) *Frame {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Frame{Pix: make([]byte, w*h*Channels), W: w, H: h}
}

func (f *Frame) Stride() int { return f.W * Channels }

// Size returns the expected size of the frame in bytes.
func Size(w, h int) int { return w * h * Channels }

// Validate checks that the frame has exactly w×h×3 bytes.
func (f *Frame) Validate(w, h int) error {
	if f == nil {
		return fmt.Errorf("%w: no frame", ErrShape)
	}
	if f.W != w || f.H != h || len(f.Pix) != Size(w, h) {
		return fmt.Errorf("%w: %vx%v (%v bytes), expected %vx%v (%v bytes)",
			ErrShape, f.W, f.H, len(f.Pix), w, h, Size(w, h))
	}
	return nil
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.W, f.H) }

func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return color.RGBA{}
	}
	i := y*f.Stride() + x*Channels
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 0xff}
}

func (f *Frame) Opaque() bool { return true }

// RGBA converts the frame into a new opaque RGBA image.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i < len(f.Pix); i, j = i+Channels, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// Equal reports whether both frames have the same shape and pixels.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.W != o.W || f.H != o.H || len(f.Pix) != len(o.Pix) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}
