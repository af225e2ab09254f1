// Package diag computes per-frame statistics and keeps
// sampled frames for offline inspection.
package diag

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/framecast/framecast/pkg/frame"
)

// FrameStats is the signature of a single frame.
type FrameStats struct {
	Tick        uint64  `json:"tick"`
	Elapsed     float64 `json:"t"`
	Fingerprint string  `json:"hash"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Sampled     bool    `json:"sampled,omitempty"`
}

// Compute hashes the frame bytes and finds the mean and
// the population standard deviation of all channel values.
func Compute(f *frame.Frame, elapsed float64, tick uint64) FrameStats {
	st := FrameStats{Tick: tick, Elapsed: elapsed}
	if f == nil {
		return st
	}
	st.Fingerprint = Fingerprint(f.Pix)
	if len(f.Pix) == 0 {
		return st
	}
	var sum, sq uint64
	for _, v := range f.Pix {
		x := uint64(v)
		sum += x
		sq += x * x
	}
	n := float64(len(f.Pix))
	st.Mean = float64(sum) / n
	variance := float64(sq)/n - st.Mean*st.Mean
	if variance < 0 {
		variance = 0
	}
	st.Std = math.Sqrt(variance)
	return st
}

// Fingerprint is the hex xxhash64 of the data.
func Fingerprint(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
