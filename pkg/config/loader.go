package config

import (
	"errors"
	"path/filepath"

	"github.com/framecast/framecast/pkg/os"
	"github.com/kkyr/fig"
)

const (
	EnvPrefix  = "FRAMECAST"
	ConfigFile = "framecast.yaml"
)

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom path to the configuration file,
// when it's empty the file is looked up in the working dir, ./configs
// and $HOME/.framecast.
// Reads and puts environment variables with the prefix FRAMECAST_.
// Params from the config should be in uppercase separated with _.
// A missing config file is not an error, the config is then
// assembled from the defaults and the environment.
func LoadConfig(config any, path string) (string, error) {
	file, dirs := ConfigFile, []string{".", "configs"}
	if path != "" {
		file, dirs = filepath.Base(path), []string{filepath.Dir(path)}
	} else if home, err := os.GetUserHome(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".framecast"))
	}
	err := fig.Load(config, fig.File(file), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) && path == "" {
		return "", LoadConfigEnv(config)
	}
	if err != nil {
		return "", err
	}
	for _, d := range dirs {
		if f := filepath.Join(d, file); os.Exists(f) {
			return f, nil
		}
	}
	return "", nil
}

// LoadConfigEnv reads the config from the defaults and the environment only.
func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}
