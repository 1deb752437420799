package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read by LoadEnv.
const EnvPrefix = "SYMODE"

// Env holds process-wide settings taken from SYMODE_* environment variables.
type Env struct {
	DataDir    string `envconfig:"DATA_DIR" default:".symode"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"warn"`
	LogDev     bool   `envconfig:"LOG_DEV" default:"false"`
	PlotWidth  int    `envconfig:"PLOT_WIDTH" default:"80"`
	PlotHeight int    `envconfig:"PLOT_HEIGHT" default:"12"`
}

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	return &env, nil
}

// LoadEnvOrDefault falls back to DefaultEnv when the environment is malformed.
func LoadEnvOrDefault() *Env {
	env, err := LoadEnv()
	if err != nil {
		return DefaultEnv()
	}
	return env
}

func DefaultEnv() *Env {
	return &Env{
		DataDir:    ".symode",
		LogLevel:   "warn",
		PlotWidth:  80,
		PlotHeight: 12,
	}
}
