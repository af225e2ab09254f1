package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey = errors.New("stream key is not set")
	ErrInvalid    = errors.New("invalid config")
)

// Validate checks the values that make streaming impossible.
// A missing stream key is reported as ErrMissingKey,
// everything else is wrapped into ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Stream.Key) == "" {
		errs = append(errs, ErrMissingKey)
	}
	if c.Stream.Width <= 0 || c.Stream.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: frame size %vx%v", ErrInvalid, c.Stream.Width, c.Stream.Height))
	}
	if c.Stream.Fps <= 0 {
		errs = append(errs, fmt.Errorf("%w: fps %v", ErrInvalid, c.Stream.Fps))
	}
	if c.Stream.PrimaryURL == "" {
		errs = append(errs, fmt.Errorf("%w: no primary url", ErrInvalid))
	}
	if c.Encoder.Binary == "" {
		errs = append(errs, fmt.Errorf("%w: no encoder binary", ErrInvalid))
	}
	if c.Diag.SampleInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: sample interval %v", ErrInvalid, c.Diag.SampleInterval))
	}
	switch c.Source.Builder {
	case "ticker", "none", "":
	case "snapshot":
		if c.Source.Snapshot == "" {
			errs = append(errs, fmt.Errorf("%w: snapshot builder needs a file path", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown builder %q", ErrInvalid, c.Source.Builder))
	}
	switch c.Storage.Provider {
	case "local", "none", "":
	case "gcs":
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("%w: gcs storage needs a bucket", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown storage %q", ErrInvalid, c.Storage.Provider))
	}
	return errors.Join(errs...)
}
