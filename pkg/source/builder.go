package source

import (
	"context"
	"fmt"
	"io"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
)

// New creates the figure builder selected in the config.
// Builders that own resources are returned with a non-nil closer.
func New(ctx context.Context, conf config.Source, log *logger.Logger) (FigureBuilder, io.Closer, error) {
	switch conf.Builder {
	case "", "ticker":
		return NewTicker(conf.Symbol, conf.Window), nil, nil
	case "snapshot":
		s, err := NewSnapshot(ctx, conf.Snapshot, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "none":
		return None{}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown figure builder: %v", conf.Builder)
}
