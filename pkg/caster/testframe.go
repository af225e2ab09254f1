package caster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"github.com/framecast/framecast/pkg/adapter"
	"github.com/framecast/framecast/pkg/os"
)

// TestFrameAt is the time used for the one-shot test frame.
const TestFrameAt = 1.23

// TestFrame acquires a single frame without the encoder and saves it
// as PNG. It fails when the main builder didn't produce the frame,
// the diagnostic frame is saved anyway.
func (c *Caster) TestFrame(ctx context.Context, path string) (int, error) {
	conf := c.conf
	if conf.Stream.Key == "" {
		conf.Stream.Key = "test-frame"
	}
	if err := conf.Validate(); err != nil {
		return ExitConfig, err
	}
	conf.Storage.Provider = "none"
	conf.Monitoring.StatsEnabled = false

	p, err := build(ctx, conf, c.log)
	if err != nil {
		return ExitConfig, err
	}
	defer func() { _ = p.Close() }()

	res := p.adapter.AcquireResult(ctx, TestFrameAt)
	var buf bytes.Buffer
	if err = png.Encode(&buf, res.Frame.RGBA()); err != nil {
		return ExitFailure, err
	}
	if err = os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return ExitFailure, err
	}
	c.log.Info().
		Str("file", path).
		Str("origin", res.Origin.String()).
		Str("reason", res.Reason.String()).
		Msg("test frame saved")

	if res.Origin != adapter.OriginPrimary {
		err = fmt.Errorf("main builder gave no frame (%v)", res.Reason)
		if res.Err != nil {
			err = errors.Join(err, res.Err)
		}
		return ExitFailure, err
	}
	return ExitOK, nil
}
