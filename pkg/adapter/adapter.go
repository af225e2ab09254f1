// Package adapter turns whatever the primary figure builder produced
// into a frame of the stream size, falling back to the diagnostic
// renderer when it can't.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/framecast/framecast/pkg/frame"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/source"
)

// Rasterizer draws charts into images.
type Rasterizer interface {
	Rasterize(c source.ChartLike, w, h int) (image.Image, error)
}

// Renderer is the last resort frame source, it must never fail.
type Renderer interface {
	Render(elapsed float64, w, h int) *frame.Frame
}

type Options struct {
	Width, Height int
	// Timeout limits a single builder call, zero means no limit.
	Timeout time.Duration
	Scale   int
}

// Result describes how the frame was acquired.
type Result struct {
	Frame  *frame.Frame
	Origin Origin
	Reason Reason
	Err    error
}

type Adapter struct {
	builder  source.FigureBuilder
	raster   Rasterizer
	fallback Renderer
	opts     Options
	log      *logger.Logger

	// busy holds a slot while a builder call runs, timed out calls keep it
	// until they return so a stuck builder never piles up goroutines
	busy chan struct{}

	mu   sync.Mutex
	last Reason
}

func New(builder source.FigureBuilder, raster Rasterizer, fallback Renderer, opts Options, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Scale == 0 {
		opts.Scale = frame.ScaleBilinear
	}
	return &Adapter{
		builder:  builder,
		raster:   raster,
		fallback: fallback,
		opts:     opts,
		log:      log.Module("adapter"),
		busy:     make(chan struct{}, 1),
	}
}

// Acquire always returns a frame of the configured size.
func (a *Adapter) Acquire(ctx context.Context, elapsed float64) *frame.Frame {
	return a.AcquireResult(ctx, elapsed).Frame
}

// AcquireResult tries the primary source once and falls back
// to the diagnostic renderer on any failure.
func (a *Adapter) AcquireResult(ctx context.Context, elapsed float64) Result {
	f, reason, err := a.primary(ctx, elapsed)
	a.report(elapsed, reason, err)

	if reason == ReasonNone {
		framesTotal.WithLabelValues(OriginPrimary.String(), reason.String()).Inc()
		return Result{Frame: f, Origin: OriginPrimary, Reason: reason}
	}
	framesTotal.WithLabelValues(OriginFallback.String(), reason.String()).Inc()
	return Result{
		Frame:  a.fallback.Render(elapsed, a.opts.Width, a.opts.Height),
		Origin: OriginFallback,
		Reason: reason,
		Err:    err,
	}
}

func (a *Adapter) primary(ctx context.Context, elapsed float64) (*frame.Frame, Reason, error) {
	r, reason, err := a.build(ctx, elapsed)
	if reason != ReasonNone {
		return nil, reason, err
	}

	var img image.Image
	switch v := r.(type) {
	case nil:
		return nil, ReasonAbsent, nil
	case source.ChartLike:
		if a.raster == nil {
			return nil, ReasonRasterize, fmt.Errorf("no chart rasterizer")
		}
		if err := safely(func() (err error) {
			img, err = a.raster.Rasterize(v, a.opts.Width, a.opts.Height)
			return
		}); err != nil {
			return nil, ReasonRasterize, err
		}
	case source.RasterImage:
		img = v.Image
	default:
		return nil, ReasonUnsupported, fmt.Errorf("unsupported renderable %T", r)
	}

	var f *frame.Frame
	if err := safely(func() (err error) {
		f, err = frame.FromImage(img, a.opts.Width, a.opts.Height, a.opts.Scale)
		return
	}); err != nil {
		return nil, ReasonNormalize, err
	}
	if err := f.Validate(a.opts.Width, a.opts.Height); err != nil {
		return nil, ReasonShape, err
	}
	return f, ReasonNone, nil
}

var errBusy = errors.New("previous builder call is still running")

type outcome struct {
	r     source.Renderable
	err   error
	panic any
}

// build calls the builder in its own goroutine so a stuck builder
// can't hold the caller longer than the timeout.
func (a *Adapter) build(ctx context.Context, elapsed float64) (source.Renderable, Reason, error) {
	if a.builder == nil {
		return nil, ReasonAbsent, nil
	}
	select {
	case a.busy <- struct{}{}:
	default:
		return nil, ReasonBusy, errBusy
	}
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() { buildSeconds.Observe(time.Since(start).Seconds()) }()

	ch := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if p := recover(); p != nil {
				o = outcome{panic: p}
			}
			// the slot is free before the caller can see the result
			<-a.busy
			ch <- o
		}()
		o.r, o.err = a.builder.Build(ctx, elapsed, a.opts.Width, a.opts.Height)
	}()

	select {
	case o := <-ch:
		switch {
		case o.panic != nil:
			return nil, ReasonPanic, fmt.Errorf("builder panic: %v", o.panic)
		case o.err != nil:
			return nil, ReasonBuildError, o.err
		}
		return o.r, ReasonNone, nil
	case <-ctx.Done():
		return nil, ReasonTimeout, ctx.Err()
	}
}

// report logs only the changes of the fallback reason
// to keep the log readable at the frame rate.
func (a *Adapter) report(elapsed float64, reason Reason, err error) {
	a.mu.Lock()
	changed := a.last != reason
	a.last = reason
	a.mu.Unlock()

	if !changed {
		if reason != ReasonNone {
			a.log.Debug().Err(err).Str("reason", reason.String()).Msg("fallback frame")
		}
		return
	}
	switch reason {
	case ReasonNone:
		a.log.Info().Float64("t", elapsed).Msg("primary source is back")
	case ReasonAbsent:
		a.log.Info().Float64("t", elapsed).Msg("primary source returned nothing, using the diagnostic frame")
	default:
		a.log.Warn().Err(err).Float64("t", elapsed).Str("reason", reason.String()).
			Msg("primary source failed, using the diagnostic frame")
	}
}

func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
