// Package config loads the application configuration from a YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"

	"github.com/avtoolkit/clipforge/internal/editor"
	"github.com/avtoolkit/clipforge/internal/face"
	"github.com/avtoolkit/clipforge/internal/ffmpeg"
	"github.com/avtoolkit/clipforge/internal/queue"
)

// Config is the aggregate user configuration, supplied by file and/or
// environment variables.
type Config struct {
	Ffmpeg ffmpeg.Config `yaml:"ffmpeg"`
	Output editor.Config `yaml:"output"`
	Face   face.Config   `yaml:"face"`
	Watch  queue.Config  `yaml:"watch"`
	Log    LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	FilePath string `yaml:"file" env:"LOG_FILE"`
}

// EditorConfig returns the editor configuration with the shared ffmpeg
// binary locations filled in.
func (config *Config) EditorConfig() editor.Config {
	out := config.Output
	out.Ffmpeg = config.Ffmpeg
	return out
}

// Load reads the config file at path, falling back to the default location
// when path is empty. A missing file is not an error; the environment and
// defaults are used instead.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(defaultPath); errors.Is(err, os.ErrNotExist) {
			if err := cleanenv.ReadEnv(config); err != nil {
				return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
			}
			return config, nil
		}
		path = defaultPath
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	return config, nil
}

// DefaultPath is '~/.config/clipforge/config.yaml'.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to derive user home directory: %w", err)
	}

	return filepath.Join(home, ".config", "clipforge", "config.yaml"), nil
}
