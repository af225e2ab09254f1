package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/framecast/framecast/pkg/logger"
	"github.com/fsnotify/fsnotify"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrNoSnapshot = errors.New("snapshot is not loaded")

// Snapshot serves the last decoded version of an image file
// and reloads it each time the file is changed.
type Snapshot struct {
	path string
	log  *logger.Logger

	watcher *fsnotify.Watcher

	mu  sync.RWMutex
	img image.Image
	err error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewSnapshot(ctx context.Context, path string, log *logger.Logger) (*Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot: %w", ErrNoSnapshot)
	}
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// the dir is watched as files are often replaced with a rename
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	s := &Snapshot{
		path:    abs,
		log:     log.Extend(log.With().Str("snapshot", abs)),
		watcher: w,
		done:    make(chan struct{}),
	}
	s.reload()
	s.wg.Add(1)
	go s.watch(ctx)
	return s, nil
}

func (s *Snapshot) String() string { return "snapshot:" + s.path }

func (s *Snapshot) Build(_ context.Context, _ float64, _, _ int) (Renderable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil, s.err
	}
	return RasterImage{Image: s.img}, nil
}

func (s *Snapshot) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
	})
	return
}

func (s *Snapshot) watch(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				s.reload()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				s.log.Warn().Msg("snapshot file is gone, keeping the last image")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Error().Err(err).Msg("snapshot watcher")
		}
	}
}

// reload decodes the file, a broken file keeps the previous image.
func (s *Snapshot) reload() {
	img, err := decode(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Debug().Err(err).Msg("snapshot decode")
		if s.img == nil {
			s.err = err
		}
		return
	}
	s.img, s.err = img, nil
	s.log.Debug().Msgf("snapshot loaded %v", img.Bounds())
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}
