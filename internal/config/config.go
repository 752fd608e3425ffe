// Package config loads exporter settings from an optional TOML file.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"oct-dicom/internal/logging"
)

// Config holds exporter settings. Batch runs use Input/Output; single-pair
// runs use BScan/SLO/Out.
type Config struct {
	Input            string
	Output           string
	BScan            string
	SLO              string
	Out              string
	Workers          int
	Recursive        bool
	Retry            bool
	DryRun           bool
	LogLevel         string
	DecompressJPEGLS bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Recursive:        true,
		LogLevel:         "info",
		DecompressJPEGLS: true,
	}
}

type fileConfig struct {
	Input            string `toml:"input"`
	Output           string `toml:"output"`
	BScan            string `toml:"bscan"`
	SLO              string `toml:"slo"`
	Out              string `toml:"out"`
	Workers          int    `toml:"workers"`
	Recursive        bool   `toml:"recursive"`
	Retry            bool   `toml:"retry"`
	DryRun           bool   `toml:"dry_run"`
	LogLevel         string `toml:"log_level"`
	DecompressJPEGLS bool   `toml:"decompress_jpegls"`
}

// Load reads path and applies every key it defines on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("bscan") {
		cfg.BScan = strings.TrimSpace(raw.BScan)
	}
	if meta.IsDefined("slo") {
		cfg.SLO = strings.TrimSpace(raw.SLO)
	}
	if meta.IsDefined("out") {
		cfg.Out = strings.TrimSpace(raw.Out)
	}
	if meta.IsDefined("workers") {
		if raw.Workers < 0 {
			return Config{}, fmt.Errorf("load config: workers must not be negative, got %d", raw.Workers)
		}
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("recursive") {
		cfg.Recursive = raw.Recursive
	}
	if meta.IsDefined("retry") {
		cfg.Retry = raw.Retry
	}
	if meta.IsDefined("dry_run") {
		cfg.DryRun = raw.DryRun
	}
	if meta.IsDefined("log_level") {
		level := strings.TrimSpace(raw.LogLevel)
		if _, err := logging.ParseLevel(level); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("decompress_jpegls") {
		cfg.DecompressJPEGLS = raw.DecompressJPEGLS
	}

	return cfg, nil
}
