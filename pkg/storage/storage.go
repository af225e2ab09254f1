// Package storage keeps diagnostic artifacts.
package storage

import (
	"context"
	"fmt"

	"github.com/framecast/framecast/pkg/config"
)

// Store saves named blobs somewhere durable.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	Close() error
}

// New creates the store selected in the config.
func New(ctx context.Context, conf config.Storage) (Store, error) {
	switch conf.Provider {
	case "", "local":
		return NewLocal(conf.Dir)
	case "gcs":
		return NewGCS(ctx, conf.Bucket, conf.Prefix)
	case "none":
		return Noop{}, nil
	}
	return nil, fmt.Errorf("unknown storage provider: %v", conf.Provider)
}

// Noop drops everything.
type Noop struct{}

func (Noop) Save(context.Context, string, []byte) error { return nil }
func (Noop) Close() error                               { return nil }
func (Noop) String() string                             { return "noop" }
