// Package caster wires the frame pipeline, the encoder and
// the supporting services into a single streaming session.
package caster

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdos "os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/framecast/framecast/pkg/adapter"
	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/diag"
	"github.com/framecast/framecast/pkg/encoder"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/monitoring"
	"github.com/framecast/framecast/pkg/os"
	"github.com/framecast/framecast/pkg/render"
	"github.com/framecast/framecast/pkg/service"
	"github.com/framecast/framecast/pkg/source"
	"github.com/framecast/framecast/pkg/source/chart"
	"github.com/framecast/framecast/pkg/storage"
	"github.com/framecast/framecast/pkg/stream"
	"github.com/gofrs/uuid"
)

const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitInvariant = 3
)

const shutdownTimeout = 5 * time.Second

// SpawnFunc starts the encoder the frames are written into.
type SpawnFunc func(ctx context.Context, conf config.Config, log *logger.Logger) (stream.Sink, error)

type Caster struct {
	conf config.Config
	log  *logger.Logger

	Spawn   SpawnFunc
	OnState func(stream.State)
}

func New(conf config.Config, log *logger.Logger) *Caster {
	if log == nil {
		log = logger.Nop()
	}
	return &Caster{conf: conf, log: log, Spawn: SpawnEncoder}
}

// SpawnEncoder starts ffmpeg, its Wait stops the process
// if it doesn't exit in time after the input is closed.
func SpawnEncoder(ctx context.Context, conf config.Config, log *logger.Logger) (stream.Sink, error) {
	p, err := encoder.Start(ctx, conf, log)
	if err != nil {
		return nil, err
	}
	return &encoderSink{Process: p, timeout: conf.Encoder.StopTimeout}, nil
}

type encoderSink struct {
	*encoder.Process
	timeout time.Duration
}

func (s *encoderSink) Wait() (int, error) { return s.Stop(s.timeout) }

// Run streams until the context is done or the encoder fails
// and returns the process exit code.
func (c *Caster) Run(ctx context.Context) (int, error) {
	if err := c.conf.Validate(); err != nil {
		return ExitConfig, err
	}

	sid := uuid.Must(uuid.NewV4()).String()
	log := c.log.Extend(c.log.With().Str("sid", sid))

	lock, err := c.lock()
	if err != nil {
		return ExitConfig, err
	}
	defer func() { _ = lock.Unlock() }()

	p, err := build(ctx, c.conf, log)
	if err != nil {
		return ExitConfig, err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("pipeline close")
		}
	}()

	var services service.Group
	if c.conf.Monitoring.IsEnabled() {
		services.Add(monitoring.New(c.conf.Monitoring, p.hub, log))
	}
	services.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := services.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("services shutdown")
		}
	}()

	sink, err := c.Spawn(ctx, c.conf, log)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ExitOK, nil
		}
		return ExitFailure, err
	}

	s := c.conf.Stream
	loop := stream.New(p.adapter, p.sampler, sink, stream.Options{Width: s.Width, Height: s.Height, Fps: s.Fps}, log)
	loop.OnState = c.OnState
	log.Info().
		Str("size", fmt.Sprintf("%dx%d", s.Width, s.Height)).
		Int("fps", s.Fps).
		Str("builder", c.conf.Source.Builder).
		Msg("streaming")

	return Status(loop.Run(ctx))
}

// Status maps the loop result into the exit code.
func Status(res stream.Result) (int, error) {
	switch res.Cause {
	case stream.CauseInterrupt:
		if res.ExitCode != 0 {
			return res.ExitCode, fmt.Errorf("encoder exited with %v: %w", res.ExitCode, res.SinkErr)
		}
		return ExitOK, nil
	case stream.CauseShape:
		return ExitInvariant, res.Err
	}
	code := res.ExitCode
	if code == 0 {
		code = ExitFailure
	}
	return code, errors.Join(res.Err, res.SinkErr)
}

// lock makes sure there is only one publisher per stream key.
func (c *Caster) lock() (*os.Flock, error) {
	name := fmt.Sprintf("framecast-%016x.lock", xxhash.Sum64String(c.conf.Stream.Key))
	dir := c.conf.Instance.LockDir
	if dir == "" {
		dir = stdos.TempDir()
	}
	lock, err := os.NewFileLock(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	if err = lock.TryLock(); err != nil {
		if errors.Is(err, os.ErrLocked) {
			return nil, fmt.Errorf("%w: another instance is streaming with this key: %w", config.ErrInvalid, err)
		}
		return nil, err
	}
	return lock, nil
}

type pipeline struct {
	adapter *adapter.Adapter
	sampler *diag.Sampler
	hub     *monitoring.Hub
	closers []io.Closer
}

func build(ctx context.Context, conf config.Config, log *logger.Logger) (*pipeline, error) {
	p := &pipeline{}

	builder, closer, err := source.New(ctx, conf.Source, log)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		p.closers = append(p.closers, closer)
	}

	fallback := render.DefaultOptions()
	fallback.Amplitude, fallback.Period = conf.Adapter.Amplitude, conf.Adapter.Period
	p.adapter = adapter.New(builder, chart.New(), render.New(fallback), adapter.Options{
		Width:   conf.Stream.Width,
		Height:  conf.Stream.Height,
		Timeout: conf.Adapter.Timeout,
	}, log)

	store, err := storage.New(ctx, conf.Storage)
	if err != nil {
		log.Error().Err(err).Str("provider", conf.Storage.Provider).
			Msg("sample storage is unavailable, samples won't be saved")
		store = storage.Noop{}
	}
	log.Info().Msgf("samples go into %v", store)

	var listeners []diag.Listener
	if conf.Monitoring.StatsEnabled {
		p.hub = monitoring.NewHub(log)
		listeners = append(listeners, p.hub)
	}
	p.sampler = diag.NewSampler(store, diag.Options{
		SampleInterval: conf.Diag.SampleInterval,
		LogEvery:       conf.Diag.LogEvery,
		QueueSize:      conf.Diag.QueueSize,
	}, log, listeners...)
	// the sampler goes first so pending writes end before the store closes
	p.closers = append(p.closers, p.sampler, store)
	return p, nil
}

func (p *pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
