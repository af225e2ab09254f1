// Package stream runs the frame loop that feeds the encoder
// at a fixed frame rate.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/framecast/framecast/pkg/diag"
	"github.com/framecast/framecast/pkg/frame"
	"github.com/framecast/framecast/pkg/logger"
)

var (
	ErrShape       = errors.New("frame shape mismatch")
	ErrWrite       = errors.New("encoder write failed")
	ErrInterrupted = errors.New("interrupted")
)

// Acquirer always returns a frame for the time since the start.
type Acquirer interface {
	Acquire(ctx context.Context, elapsed float64) *frame.Frame
}

type Observer interface {
	Observe(f *frame.Frame, elapsed float64, tick uint64) diag.FrameStats
}

// Sink is the encoder input. Wait returns the encoder exit code
// after its input was closed. Close may be called more than once
// and while a Write is blocked.
type Sink interface {
	io.Writer
	Close() error
	Wait() (int, error)
}

type Options struct {
	Width, Height int
	Fps           int
}

type Result struct {
	State    State
	Ticks    uint64
	Cause    Cause
	ExitCode int
	// Err is the reason of the drain, nil only if the loop never ran.
	Err error
	// SinkErr is the encoder wait error.
	SinkErr error
}

type Loop struct {
	src  Acquirer
	obs  Observer
	sink Sink
	opts Options
	log  *logger.Logger

	// OnState is called on each state change from the loop goroutine.
	OnState func(State)

	state atomic.Int32
	ticks atomic.Uint64
}

func New(src Acquirer, obs Observer, sink Sink, opts Options, log *logger.Logger) *Loop {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Fps <= 0 {
		opts.Fps = 15
	}
	return &Loop{src: src, obs: obs, sink: sink, opts: opts, log: log.Module("stream")}
}

func (l *Loop) State() State  { return State(l.state.Load()) }
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

func (l *Loop) Period() time.Duration { return time.Second / time.Duration(l.opts.Fps) }

func (l *Loop) setState(s State) {
	prev := State(l.state.Swap(int32(s)))
	stateGauge.Set(float64(s))
	if prev != s || s == Starting {
		l.log.Info().Str("from", prev.String()).Str("to", s.String()).Msg("state")
	}
	if l.OnState != nil {
		l.OnState(s)
	}
}

// Run streams frames until the context is cancelled or a frame
// can't be written, then closes the sink and waits for the encoder.
func (l *Loop) Run(ctx context.Context) (res Result) {
	l.setState(Starting)
	defer func() {
		if p := recover(); p != nil {
			l.log.Error().Msgf("stream loop panic: %v", p)
			res.Cause, res.Err = CausePanic, fmt.Errorf("stream loop panic: %v", p)
		}
		res = l.drain(res)
	}()

	l.setState(Running)
	res.Cause, res.Err = l.run(ctx)
	return res
}

func (l *Loop) run(ctx context.Context) (Cause, error) {
	w, h := l.opts.Width, l.opts.Height
	period := l.Period()
	start := time.Now()
	next := start

	timer := time.NewTimer(period)
	defer timer.Stop()

	// a write blocked on a stalled encoder only returns when its input is closed
	stop := context.AfterFunc(ctx, func() { _ = l.sink.Close() })
	defer stop()

	for tick := uint64(0); ; tick++ {
		if ctx.Err() != nil {
			return CauseInterrupt, ErrInterrupted
		}
		began := time.Now()
		elapsed := began.Sub(start).Seconds()

		f := l.src.Acquire(ctx, elapsed)
		if err := f.Validate(w, h); err != nil {
			l.log.Error().Err(err).Uint64("tick", tick).Msg("bad frame, draining")
			return CauseShape, fmt.Errorf("%w: %v", ErrShape, err)
		}
		if l.obs != nil {
			l.obs.Observe(f, elapsed, tick)
		}
		if _, err := l.sink.Write(f.Pix); err != nil {
			if ctx.Err() != nil {
				return CauseInterrupt, ErrInterrupted
			}
			l.log.Error().Err(err).Uint64("tick", tick).Msg("encoder write failed, draining")
			return CauseWrite, fmt.Errorf("%w: %v", ErrWrite, err)
		}
		l.ticks.Store(tick + 1)
		framesWritten.Inc()
		bytesWritten.Add(float64(len(f.Pix)))
		tickSeconds.Observe(time.Since(began).Seconds())

		next = next.Add(period)
		wait := time.Until(next)
		if wait < -period {
			lateTicks.Inc()
			l.log.Debug().Dur("behind", -wait).Uint64("tick", tick).Msg("late, re-anchoring")
			next = time.Now()
			wait = 0
		}
		if wait <= 0 {
			continue
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return CauseInterrupt, ErrInterrupted
		}
	}
}

func (l *Loop) drain(res Result) Result {
	l.setState(Draining)
	res.Ticks = l.Ticks()

	if err := l.sink.Close(); err != nil {
		l.log.Debug().Err(err).Msg("encoder input close")
	}
	res.ExitCode, res.SinkErr = l.sink.Wait()

	l.setState(Stopped)
	res.State = Stopped
	l.log.Info().
		Str("cause", res.Cause.String()).
		Uint64("ticks", res.Ticks).
		Int("code", res.ExitCode).
		Msg("stream stopped")
	return res
}
