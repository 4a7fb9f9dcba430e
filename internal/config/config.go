package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v2"
)

const (
	DefaultFileName    = ".smallsh.yml"
	DefaultPrompt      = ": "
	DefaultHistoryName = ".smallsh_history"
	DefaultHistorySize = 1000
	DefaultLogLevel    = "info"
)

type Config struct {
	Prompt       string `yaml:"prompt" validate:"required"`
	HomeDir      string `yaml:"home_dir"`
	HistoryFile  string `yaml:"history_file"`
	HistoryLimit int    `yaml:"history_limit" validate:"gte=0,lte=100000"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Color        bool   `yaml:"color"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Prompt:       DefaultPrompt,
		HistoryLimit: DefaultHistorySize,
		LogLevel:     DefaultLogLevel,
		Color:        true,
	}
}

// Load reads file from fsys. A missing file is not an error: the defaults
// are used instead.
func Load(fsys afero.Fs, file string) (*Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fsys, file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", file)
	default:
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", file)
		}
	}

	if err := cfg.fillDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid configuration"), "path", file)
	}
	return cfg, nil
}

func (c *Config) fillDefaults() error {
	if c.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return zerr.Wrap(err, "failed to resolve home directory")
		}
		c.HomeDir = home
	}

	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.HomeDir, DefaultHistoryName)
	}
	return nil
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	return validate.Struct(c)
}
