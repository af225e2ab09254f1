package diag

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"
	"time"

	"github.com/framecast/framecast/pkg/frame"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/storage"
)

const (
	DefaultSampleInterval = 75
	DefaultQueueSize      = 3
	sampleFile            = "sample_%06d.png"
	saveTimeout           = 30 * time.Second
)

// Listener gets the stats of each frame, it must not block.
type Listener interface {
	Publish(st FrameStats)
}

type Options struct {
	// SampleInterval is the number of ticks between saved frames,
	// zero disables sampling.
	SampleInterval int
	// LogEvery prints the stats with the info level each N ticks,
	// other ticks are logged with the debug level.
	LogEvery int
	// QueueSize is the number of samples waiting for the store.
	QueueSize int
}

type pool struct{ sync.Pool }

func pngBuf() *pool                      { return &pool{sync.Pool{New: func() any { return &png.EncoderBuffer{} }}} }
func (p *pool) Get() *png.EncoderBuffer  { return p.Pool.Get().(*png.EncoderBuffer) }
func (p *pool) Put(b *png.EncoderBuffer) { p.Pool.Put(b) }

// Sampler logs frame stats and saves each N-th frame into a store.
// Saving is asynchronous: one writer goroutine takes samples from a short
// queue, samples that come while the queue is full are skipped.
type Sampler struct {
	store     storage.Store
	opts      Options
	log       *logger.Logger
	e         *png.Encoder
	listeners []Listener

	queue   chan sample
	pending sync.WaitGroup
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

type sample struct {
	name string
	f    *frame.Frame
}

func NewSampler(store storage.Store, opts Options, log *logger.Logger, listeners ...Listener) *Sampler {
	if log == nil {
		log = logger.Nop()
	}
	if store == nil {
		store = storage.Noop{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	s := &Sampler{
		store:     store,
		opts:      opts,
		log:       log.Module("diag"),
		e:         &png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: pngBuf()},
		listeners: listeners,
		queue:     make(chan sample, opts.QueueSize),
		done:      make(chan struct{}),
	}
	go s.writer()
	return s
}

// ShouldSample reports whether the tick is a positive multiple of the interval.
func (s *Sampler) ShouldSample(tick uint64) bool {
	n := uint64(s.opts.SampleInterval)
	return n > 0 && tick > 0 && tick%n == 0
}

// SampleName is the artifact name of the sampled tick.
func (s *Sampler) SampleName(tick uint64) string {
	return fmt.Sprintf(sampleFile, tick/uint64(s.opts.SampleInterval))
}

// Observe computes the frame stats, logs them and, if it's time to,
// saves the frame. It never fails, any problem is only logged.
func (s *Sampler) Observe(f *frame.Frame, elapsed float64, tick uint64) (st FrameStats) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Msgf("stats panic: %v", p)
		}
	}()

	st = Compute(f, elapsed, tick)
	frameMean.Set(st.Mean)
	frameStd.Set(st.Std)

	if s.ShouldSample(tick) && f != nil {
		st.Sampled = s.save(s.SampleName(tick), f)
	}

	ev := s.log.Debug()
	if s.opts.LogEvery > 0 && tick%uint64(s.opts.LogEvery) == 0 {
		ev = s.log.Info()
	}
	ev.Uint64("tick", tick).
		Float64("t", elapsed).
		Str("hash", st.Fingerprint).
		Float64("mean", st.Mean).
		Float64("std", st.Std).
		Bool("sampled", st.Sampled).
		Msg("frame")

	for _, l := range s.listeners {
		l.Publish(st)
	}
	return st
}

// save queues the frame unless the queue is full.
func (s *Sampler) save(name string, f *frame.Frame) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	s.pending.Add(1)
	select {
	case s.queue <- sample{name: name, f: f}:
		return true
	default:
		s.pending.Done()
		samplesTotal.WithLabelValues("skipped").Inc()
		s.log.Warn().Str("file", name).Int("queue", cap(s.queue)).Msg("sample queue is full, skipping")
		return false
	}
}

func (s *Sampler) writer() {
	defer close(s.done)
	for smp := range s.queue {
		s.persist(smp)
	}
}

func (s *Sampler) persist(smp sample) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Msgf("sample save panic: %v", p)
		}
		s.pending.Done()
	}()
	if err := s.write(smp.name, smp.f); err != nil {
		samplesTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("file", smp.name).Msg("couldn't save the sample")
		return
	}
	samplesTotal.WithLabelValues("ok").Inc()
	s.log.Info().Str("file", smp.name).Msg("sample saved")
}

func (s *Sampler) write(name string, f *frame.Frame) error {
	var buf bytes.Buffer
	buf.Grow(len(f.Pix))
	if err := s.e.Encode(&buf, f.RGBA()); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	return s.store.Save(ctx, name, buf.Bytes())
}

// Wait blocks until the queued samples are written.
func (s *Sampler) Wait() { s.pending.Wait() }

// Close writes the queued samples and stops the writer.
func (s *Sampler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
	return nil
}
