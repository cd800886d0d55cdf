// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Analysis AnalysisConfig `toml:"analysis"`
}

// AnalysisConfig maps detection-related settings.
type AnalysisConfig struct {
	SamplingRate    *float64 `toml:"sampling-rate"`
	ForceThreshold  *float64 `toml:"force-threshold"`
	BaselinePeriod  *float64 `toml:"baseline-period"`
	ContactSdFactor *float64 `toml:"contact-sd-factor"`
	AxisChannel     *string  `toml:"axis-channel"`
	LeadChannel     *string  `toml:"lead-channel"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
