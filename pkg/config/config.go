package config

import (
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	Stream     Stream
	Encoder    Encoder
	Source     Source
	Adapter    Adapter
	Diag       Diag
	Storage    Storage
	Monitoring Monitoring
	Log        Log
	Instance   Instance
}

// Stream is the output stream description.
type Stream struct {
	Width   int    `default:"640"`
	Height  int    `default:"360"`
	Fps     int    `default:"15"`
	Bitrate string `default:"2500k"`
	// Key is the stream key (credential) appended to both destinations.
	Key        string
	PrimaryURL string `fig:"primary_url" default:"rtmp://a.rtmp.youtube.com/live2"`
	// BackupURL may carry a query marker like ?backup=1,
	// empty value disables the backup destination.
	BackupURL string `fig:"backup_url" default:"rtmp://b.rtmp.youtube.com/live2?backup=1"`
}

type Encoder struct {
	Binary       string        `default:"ffmpeg"`
	VideoCodec   string        `fig:"video_codec" default:"libx264"`
	Preset       string        `default:"veryfast"`
	AudioCodec   string        `fig:"audio_codec" default:"aac"`
	AudioBitrate string        `fig:"audio_bitrate" default:"128k"`
	AudioRate    int           `fig:"audio_rate" default:"44100"`
	LogLevel     string        `fig:"log_level" default:"warning"`
	StopTimeout  time.Duration `fig:"stop_timeout" default:"5s"`
}

// Source selects the primary frame builder.
type Source struct {
	// Builder is one of: ticker, snapshot, none.
	Builder  string `default:"ticker"`
	Symbol   string `default:"BTCUSDT"`
	Window   int    `default:"120"`
	Snapshot string
}

type Adapter struct {
	Timeout time.Duration `default:"200ms"`
	// Amplitude of the fallback marker movement as a fraction of the frame width.
	Amplitude float64 `default:"0.25"`
	// Period of the fallback marker movement in seconds.
	Period float64 `default:"6.283185307179586"`
}

type Diag struct {
	SampleInterval int `fig:"sample_interval" default:"75"`
	LogEvery       int `fig:"log_every" default:"75"`
	QueueSize      int `fig:"queue_size" default:"3"`
}

type Storage struct {
	// Provider is one of: local, gcs, none.
	Provider string `default:"local"`
	Dir      string `default:"samples"`
	Bucket   string
	Prefix   string
}

type Monitoring struct {
	Port             int `default:"6601"`
	URLPrefix        string
	MetricEnabled    bool `fig:"metric_enabled"`
	ProfilingEnabled bool `fig:"profiling_enabled"`
	StatsEnabled     bool `fig:"stats_enabled"`
}

func (c *Monitoring) IsEnabled() bool {
	return c.MetricEnabled || c.ProfilingEnabled || c.StatsEnabled
}

type Log struct {
	Debug   bool
	JSON    bool
	NoColor bool `fig:"no_color"`
}

type Instance struct {
	// LockDir keeps per stream key lock files.
	LockDir string `fig:"lock_dir"`
}

// Flags holds command-line overrides of the config values.
type Flags struct {
	Path           string
	Debug          bool
	Key            string
	Builder        string
	MonitoringPort int
}

func (f *Flags) WithFlags(fs *pflag.FlagSet) *Flags {
	fs.StringVarP(&f.Path, "conf", "c", "", "Set custom configuration file path")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logs")
	fs.StringVar(&f.Key, "key", "", "Stream key")
	fs.StringVar(&f.Builder, "builder", "", "Frame builder: ticker, snapshot, none")
	fs.IntVar(&f.MonitoringPort, "monitoring.port", 0, "Monitoring server port")
	return f
}

// Apply copies the explicitly set flags into the config.
func (f *Flags) Apply(fs *pflag.FlagSet, c *Config) {
	if fs.Changed("debug") {
		c.Log.Debug = f.Debug
	}
	if fs.Changed("key") {
		c.Stream.Key = f.Key
	}
	if fs.Changed("builder") {
		c.Source.Builder = f.Builder
	}
	if fs.Changed("monitoring.port") {
		c.Monitoring.Port = f.MonitoringPort
	}
}

// NewConfig loads the config from the given path or from the default locations.
func NewConfig(path string) (conf Config, src string, err error) {
	src, err = LoadConfig(&conf, path)
	return
}
