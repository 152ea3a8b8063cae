// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer   TimerFileConfig `toml:"timer"`
	Bonuses BonusFileConfig `toml:"bonuses"`
}

// TimerFileConfig maps timer-related settings.
type TimerFileConfig struct {
	WorkMinutes       *int `toml:"work-minutes"`
	ShortBreakMinutes *int `toml:"short-break-minutes"`
	LongBreakMinutes  *int `toml:"long-break-minutes"`
	RoundsPerCycle    *int `toml:"rounds-per-cycle"`
	ExtendMinutes     *int `toml:"extend-minutes"`
	MicroMinutes      *int `toml:"micro-minutes"`
}

// BonusFileConfig maps XP bonus toggles.
type BonusFileConfig struct {
	Streak  *bool `toml:"streak"`
	Cycle   *bool `toml:"cycle"`
	Kickoff *bool `toml:"kickoff"`
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
