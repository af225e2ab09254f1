package diag

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"

	"github.com/framecast/framecast/pkg/frame"
	"github.com/framecast/framecast/pkg/storage"
)

type memStore struct {
	sync.Mutex
	names []string
	data  map[string][]byte
	err   error
}

func (m *memStore) Save(_ context.Context, name string, data []byte) error {
	m.Lock()
	defer m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.names = append(m.names, name)
	m.data[name] = data
	return nil
}

func (m *memStore) Close() error { return nil }

type collector struct{ got []FrameStats }

func (c *collector) Publish(st FrameStats) { c.got = append(c.got, st) }

func TestCompute(t *testing.T) {
	flat := frame.Fill(4, 4, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	st := Compute(flat, 1.5, 7)
	if st.Mean != 10 || st.Std != 0 || st.Tick != 7 || st.Elapsed != 1.5 {
		t.Errorf("wrong stats %+v", st)
	}

	half := frame.New(2, 1)
	copy(half.Pix, []byte{0, 0, 0, 255, 255, 255})
	st = Compute(half, 0, 0)
	if st.Mean != 127.5 || math.Abs(st.Std-127.5) > 1e-9 {
		t.Errorf("wrong stats %+v", st)
	}

	if Compute(flat, 0, 0).Fingerprint == Compute(half, 0, 0).Fingerprint {
		t.Errorf("different frames have the same fingerprint")
	}
	if a, b := Compute(flat, 0, 0), Compute(frame.Fill(4, 4, color.RGBA{R: 10, G: 10, B: 10}), 5, 5); a.Fingerprint != b.Fingerprint {
		t.Errorf("same content should have the same fingerprint")
	}
	if st := Compute(nil, 0, 0); st.Fingerprint != "" {
		t.Errorf("nil frame should have no stats")
	}
}

func TestShouldSample(t *testing.T) {
	s := NewSampler(storage.Noop{}, Options{SampleInterval: DefaultSampleInterval}, nil)
	for tick, want := range map[uint64]bool{0: false, 1: false, 74: false, 75: true, 76: false, 150: true, 7500: true} {
		if got := s.ShouldSample(tick); got != want {
			t.Errorf("tick %v: got %v, want %v", tick, got, want)
		}
	}
	off := NewSampler(storage.Noop{}, Options{}, nil)
	if off.ShouldSample(75) {
		t.Errorf("zero interval should disable sampling")
	}
}

func TestSampling(t *testing.T) {
	store := &memStore{}
	c := &collector{}
	s := NewSampler(store, Options{SampleInterval: 75, LogEvery: 75}, nil, c)
	f := frame.Fill(8, 4, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	var sampled []uint64
	for tick := uint64(0); tick <= 375; tick++ {
		if st := s.Observe(f, float64(tick)/15, tick); st.Sampled {
			sampled = append(sampled, tick)
		}
		s.Wait()
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	want := []uint64{75, 150, 225, 300, 375}
	if len(sampled) != len(want) {
		t.Fatalf("sampled ticks %v, want %v", sampled, want)
	}
	for i := range want {
		if sampled[i] != want[i] {
			t.Errorf("sampled ticks %v, want %v", sampled, want)
		}
	}
	names := []string{"sample_000001.png", "sample_000002.png", "sample_000003.png", "sample_000004.png", "sample_000005.png"}
	if len(store.names) != len(names) {
		t.Fatalf("saved %v", store.names)
	}
	for i := range names {
		if store.names[i] != names[i] {
			t.Errorf("saved %v, want %v", store.names, names)
		}
	}
	img, err := png.Decode(bytes.NewReader(store.data[names[0]]))
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := img.At(0, 0).RGBA(); r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("wrong saved pixel %v %v %v", r>>8, g>>8, b>>8)
	}
	if len(c.got) != 376 {
		t.Errorf("listener got %v stats", len(c.got))
	}
}

func TestSamplingStoreError(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	s := NewSampler(store, Options{SampleInterval: 1}, nil)
	f := frame.New(2, 2)
	for tick := uint64(1); tick < 5; tick++ {
		s.Observe(f, 0, tick)
		s.Wait()
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

type blockingStore struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	names   []string
}

func (b *blockingStore) Save(_ context.Context, name string, _ []byte) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	b.mu.Lock()
	b.names = append(b.names, name)
	b.mu.Unlock()
	return nil
}
func (b *blockingStore) Close() error { return nil }

func TestSamplingQueuesWhileBusy(t *testing.T) {
	store := &blockingStore{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSampler(store, Options{SampleInterval: 1, QueueSize: 3}, nil)
	f := frame.New(2, 2)

	if st := s.Observe(f, 0, 1); !st.Sampled {
		t.Fatalf("first sample should be saved")
	}
	<-store.started
	for tick := uint64(2); tick <= 4; tick++ {
		if st := s.Observe(f, 0, tick); !st.Sampled {
			t.Errorf("tick %v should be queued behind the slow write", tick)
		}
	}
	if st := s.Observe(f, 0, 5); st.Sampled {
		t.Errorf("tick 5 should be skipped with a full queue")
	}
	close(store.release)
	s.Wait()
	if st := s.Observe(f, 0, 6); !st.Sampled {
		t.Errorf("sampling should continue after the queue is drained")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if st := s.Observe(f, 0, 7); st.Sampled {
		t.Errorf("closed sampler should not save")
	}

	want := []string{"sample_000001.png", "sample_000002.png", "sample_000003.png", "sample_000004.png", "sample_000006.png"}
	if len(store.names) != len(want) {
		t.Fatalf("saved %v, want %v", store.names, want)
	}
	for i := range want {
		if store.names[i] != want[i] {
			t.Errorf("saved %v, want %v", store.names, want)
		}
	}
}

func BenchmarkCompute640x360(b *testing.B) {
	f := frame.New(640, 360)
	b.SetBytes(int64(len(f.Pix)))
	for i := 0; i < b.N; i++ {
		Compute(f, 0, uint64(i))
	}
}
