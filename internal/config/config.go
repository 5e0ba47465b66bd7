// Package config handles converter configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/fillconv/internal/logger"
)

// Backend names.
const (
	BackendNative = "native"
	BackendMagick = "magick"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all converter settings.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Backend BackendConfig `yaml:"backend"`
	Texture TextureConfig `yaml:"texture"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig controls where intermediates and outputs go.
type PathsConfig struct {
	TmpDir            string `yaml:"tmp_dir"`            // Relative to the working directory
	OutputSubdir      string `yaml:"output_subdir"`      // Created beside the diffuse input
	KeepIntermediates bool   `yaml:"keep_intermediates"` // Leave tmp files for inspection
}

// BackendConfig selects how filter steps are executed.
type BackendConfig struct {
	Name       string `yaml:"name"`
	MagickPath string `yaml:"magick_path"`
}

// TextureConfig holds the fixed texture dimensions and filter parameters.
type TextureConfig struct {
	CanvasSize     int     `yaml:"canvas_size"`
	HeightSize     int     `yaml:"height_size"`
	BlurSigma      float64 `yaml:"blur_sigma"`
	Gamma          float64 `yaml:"gamma"`
	ShininessScale float64 `yaml:"shininess_scale"` // Factor applied to the normal blue channel
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config matching the FS22 to FS25 fillplane conversion.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			TmpDir:            "texture_convert_tmp",
			OutputSubdir:      "converted",
			KeepIntermediates: true,
		},
		Backend: BackendConfig{
			Name:       BackendNative,
			MagickPath: "magick",
		},
		Texture: TextureConfig{
			CanvasSize:     1024,
			HeightSize:     512,
			BlurSigma:      8,
			Gamma:          2.0,
			ShininessScale: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks the config for values the pipeline cannot work with.
func (c *Config) Validate() error {
	switch c.Backend.Name {
	case BackendNative:
	case BackendMagick:
		if c.Backend.MagickPath == "" {
			return fmt.Errorf("%w: backend.magick_path is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend.Name)
	}
	if c.Paths.TmpDir == "" {
		return fmt.Errorf("%w: paths.tmp_dir is empty", ErrInvalidConfig)
	}
	if c.Paths.OutputSubdir == "" {
		return fmt.Errorf("%w: paths.output_subdir is empty", ErrInvalidConfig)
	}
	if c.Texture.CanvasSize <= 0 || c.Texture.HeightSize <= 0 {
		return fmt.Errorf("%w: texture sizes must be positive", ErrInvalidConfig)
	}
	if c.Texture.BlurSigma <= 0 {
		return fmt.Errorf("%w: texture.blur_sigma must be positive", ErrInvalidConfig)
	}
	if c.Texture.Gamma <= 0 {
		return fmt.Errorf("%w: texture.gamma must be positive", ErrInvalidConfig)
	}
	if c.Texture.ShininessScale < 0 {
		return fmt.Errorf("%w: texture.shininess_scale must not be negative", ErrInvalidConfig)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}
