package storage

import (
	"context"
	"path/filepath"

	"github.com/framecast/framecast/pkg/os"
)

// Local writes files into a directory.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.CheckCreateDir(path); err != nil {
		return nil, err
	}
	return &Local{dir: path}, nil
}

func (l *Local) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.dir, filepath.Base(name)), data, 0644)
}

func (l *Local) Close() error   { return nil }
func (l *Local) Dir() string    { return l.dir }
func (l *Local) String() string { return "local:" + l.dir }
