package caster

import (
	"context"
	"errors"
	"image/png"
	stdos "os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/os"
	"github.com/framecast/framecast/pkg/stream"
)

type fakeSink struct {
	sync.Mutex
	n      int
	failAt int
	code   int
	after  func(n int)
}

func (s *fakeSink) Write(b []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	if s.failAt > 0 && s.n >= s.failAt {
		return 0, syscall.EPIPE
	}
	s.n++
	if s.after != nil {
		s.after(s.n)
	}
	return len(b), nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) Wait() (int, error) {
	if s.code != 0 {
		return s.code, errors.New("exit status")
	}
	return 0, nil
}

func testConf(t *testing.T) config.Config {
	t.Helper()
	var conf config.Config
	if err := config.LoadConfigEnv(&conf); err != nil {
		t.Fatal(err)
	}
	conf.Stream.Key = "test-key-" + t.Name()
	conf.Stream.Width, conf.Stream.Height, conf.Stream.Fps = 64, 36, 60
	conf.Source.Builder = "none"
	conf.Storage.Provider = "none"
	conf.Monitoring = config.Monitoring{}
	conf.Instance.LockDir = t.TempDir()
	return conf
}

func TestRunMissingKey(t *testing.T) {
	conf := testConf(t)
	conf.Stream.Key = "  "
	c := New(conf, nil)
	spawned := false
	c.Spawn = func(context.Context, config.Config, *logger.Logger) (stream.Sink, error) {
		spawned = true
		return &fakeSink{}, nil
	}

	code, err := c.Run(context.Background())
	if code != ExitConfig || !errors.Is(err, config.ErrMissingKey) {
		t.Errorf("got %v %v, want config error", code, err)
	}
	if spawned {
		t.Errorf("the encoder was started without a key")
	}
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &fakeSink{after: func(n int) {
		if n == 5 {
			cancel()
		}
	}}
	c := New(testConf(t), nil)
	c.Spawn = func(context.Context, config.Config, *logger.Logger) (stream.Sink, error) { return sink, nil }
	var states []stream.State
	c.OnState = func(s stream.State) { states = append(states, s) }

	code, err := c.Run(ctx)
	if code != ExitOK || err != nil {
		t.Errorf("got %v %v, want clean exit", code, err)
	}
	if sink.n != 5 {
		t.Errorf("wrote %v frames", sink.n)
	}
	if len(states) == 0 || states[len(states)-1] != stream.Stopped {
		t.Errorf("wrong states %v", states)
	}
}

func TestRunEncoderFailed(t *testing.T) {
	c := New(testConf(t), nil)
	c.Spawn = func(context.Context, config.Config, *logger.Logger) (stream.Sink, error) {
		return &fakeSink{failAt: 3, code: 9}, nil
	}
	code, err := c.Run(context.Background())
	if code != 9 || !errors.Is(err, stream.ErrWrite) {
		t.Errorf("got %v %v, want the encoder code", code, err)
	}
}

func TestRunSpawnFailed(t *testing.T) {
	conf := testConf(t)
	conf.Encoder.Binary = filepath.Join(t.TempDir(), "no-ffmpeg")
	code, err := New(conf, nil).Run(context.Background())
	if code != ExitFailure || err == nil {
		t.Errorf("got %v %v, want failure", code, err)
	}
}

func TestRunLocked(t *testing.T) {
	conf := testConf(t)
	first := New(conf, nil)
	lock, err := first.lock()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Unlock() }()

	second := New(conf, nil)
	second.Spawn = func(context.Context, config.Config, *logger.Logger) (stream.Sink, error) {
		t.Error("spawned while locked")
		return &fakeSink{}, nil
	}
	code, err := second.Run(context.Background())
	if code != ExitConfig || !errors.Is(err, os.ErrLocked) {
		t.Errorf("got %v %v, want lock error", code, err)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		res  stream.Result
		code int
	}{
		{stream.Result{Cause: stream.CauseInterrupt}, ExitOK},
		{stream.Result{Cause: stream.CauseInterrupt, ExitCode: 255}, 255},
		{stream.Result{Cause: stream.CauseShape, Err: stream.ErrShape}, ExitInvariant},
		{stream.Result{Cause: stream.CauseWrite, Err: stream.ErrWrite}, ExitFailure},
		{stream.Result{Cause: stream.CauseWrite, Err: stream.ErrWrite, ExitCode: 8}, 8},
		{stream.Result{Cause: stream.CausePanic}, ExitFailure},
	}
	for _, test := range tests {
		if code, _ := Status(test.res); code != test.code {
			t.Errorf("%v: got %v, want %v", test.res.Cause, code, test.code)
		}
	}
}

func TestTestFrame(t *testing.T) {
	tests := []struct {
		builder string
		code    int
	}{
		{"ticker", ExitOK},
		{"none", ExitFailure},
	}
	for _, test := range tests {
		t.Run(test.builder, func(t *testing.T) {
			conf := testConf(t)
			conf.Stream.Key = ""
			conf.Source.Builder = test.builder
			path := filepath.Join(t.TempDir(), "frame.png")

			code, err := New(conf, nil).TestFrame(context.Background(), path)
			if code != test.code {
				t.Errorf("got %v %v, want %v", code, err, test.code)
			}
			f, err := stdos.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = f.Close() }()
			img, err := png.Decode(f)
			if err != nil {
				t.Fatal(err)
			}
			if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
				t.Errorf("wrong frame size %v", b)
			}
		})
	}
}

func TestRunStorageUnavailable(t *testing.T) {
	conf := testConf(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := stdos.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	conf.Storage.Provider = "local"
	conf.Storage.Dir = filepath.Join(blocker, "samples")
	conf.Diag.SampleInterval = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &fakeSink{after: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	c := New(conf, nil)
	c.Spawn = func(context.Context, config.Config, *logger.Logger) (stream.Sink, error) { return sink, nil }

	code, err := c.Run(ctx)
	if code != ExitOK || err != nil {
		t.Errorf("got %v %v, want the stream to run without samples", code, err)
	}
	if sink.n != 3 {
		t.Errorf("wrote %v frames", sink.n)
	}
}
