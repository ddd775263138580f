// Package config handles td5kit configuration loading and management.
package config

import (
	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/formats"
	"github.com/Faultbox/td5kit/pkg/texpack"
)

// Config holds all tool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Import  ImportConfig  `yaml:"import"`
	Export  ExportConfig  `yaml:"export"`
	Level   LevelConfig   `yaml:"level"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ImportConfig holds model decoding settings.
type ImportConfig struct {
	WeldTolerance float32 `yaml:"weld_tolerance"` // Strip position weld distance in engine units
	Workers       int     `yaml:"workers"`        // Level decoding pool size; 0 decodes sequentially
}

// ExportConfig holds output settings.
type ExportConfig struct {
	TextureFormat string `yaml:"texture_format"` // png, webp, tga or bmp
}

// LevelConfig holds defaults for embedded model directories.
type LevelConfig struct {
	Format string `yaml:"format"` // Model format inside containers; empty sniffs each model
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Import: ImportConfig{
			WeldTolerance: formats.DefaultWeldTolerance,
			Workers:       0,
		},
		Export: ExportConfig{
			TextureFormat: string(texpack.PNG),
		},
	}
}

// DecodeOptions returns decoder options for a mesh named name.
func (c *Config) DecodeOptions(name string, log *zap.Logger) formats.Options {
	return formats.Options{
		Name:          name,
		Logger:        log,
		WeldTolerance: c.Import.WeldTolerance,
	}
}

// TextureFormat returns the configured texture output format.
func (c *Config) TextureFormat() (texpack.ImageFormat, error) {
	return texpack.ParseImageFormat(c.Export.TextureFormat)
}

// LevelFormat returns the configured container model format.
func (c *Config) LevelFormat() (formats.Format, error) {
	if c.Level.Format == "" {
		return formats.FormatUnknown, nil
	}
	return formats.ParseFormat(c.Level.Format)
}
