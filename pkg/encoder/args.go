package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/framecast/framecast/pkg/config"
)

const redacted = "<key>"

// Args makes the ffmpeg command line that reads raw RGB24 frames from stdin,
// adds a silent audio track and publishes the result to the destinations.
func Args(conf config.Config) []string {
	s, e := conf.Stream, conf.Encoder
	fps := strconv.Itoa(s.Fps)

	args := []string{
		"-hide_banner",
		"-loglevel", e.LogLevel,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-r", fps,
		"-i", "pipe:0",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", e.AudioRate),
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", e.VideoCodec,
		"-preset", e.Preset,
		"-tune", "zerolatency",
		"-pix_fmt", "yuv420p",
		"-g", strconv.Itoa(2 * s.Fps),
		"-b:v", s.Bitrate,
		"-maxrate", s.Bitrate,
		"-bufsize", double(s.Bitrate),
		"-c:a", e.AudioCodec,
		"-b:a", e.AudioBitrate,
		"-ar", strconv.Itoa(e.AudioRate),
	}

	primary := Destination(s.PrimaryURL, s.Key)
	if strings.TrimSpace(s.BackupURL) == "" {
		return append(args, "-f", "flv", primary)
	}
	backup := Destination(s.BackupURL, s.Key)
	return append(args, "-f", "tee",
		"[f=flv:onfail=ignore]"+primary+"|[f=flv:onfail=ignore]"+backup)
}

// Destination appends the stream key to the base URL
// keeping its query part (the backup marker) at the end.
func Destination(base, key string) string {
	path, query, hasQuery := strings.Cut(base, "?")
	dst := strings.TrimRight(path, "/") + "/" + key
	if hasQuery {
		dst += "?" + query
	}
	return dst
}

// Redact hides the stream key in the args so they can be logged.
func Redact(args []string, key string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if key != "" {
			a = strings.ReplaceAll(a, key, redacted)
		}
		out[i] = a
	}
	return out
}

// double doubles the bitrate value like 2500k or 3M,
// unknown values are returned as is.
func double(rate string) string {
	num, unit := rate, ""
	if n := len(rate); n > 0 {
		switch rate[n-1] {
		case 'k', 'K', 'm', 'M':
			num, unit = rate[:n-1], rate[n-1:]
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return rate
	}
	return strconv.FormatFloat(2*v, 'f', -1, 64) + unit
}
