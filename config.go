package ecs

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config is the engine's environment-driven configuration. Every field has a
// usable default, so an empty environment yields a working engine.
type Config struct {
	LogLevel        string `config:"ECS_LOG_LEVEL"`
	LogPretty       bool   `config:"ECS_LOG_PRETTY"`
	ParallelWorkers int    `config:"ECS_PARALLEL_WORKERS"`
	BatchSize       int    `config:"ECS_BATCH_SIZE"`
	NoFinalApply    bool   `config:"ECS_NO_FINAL_APPLY"`
	StatsdAddress   string `config:"ECS_STATSD_ADDRESS"`
	StatsdTag       string `config:"ECS_STATSD_TAG"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:        "info",
		ParallelWorkers: 0,
		BatchSize:       0,
	}
}

// LoadConfig reads the configuration from the environment on top of the
// defaults.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "loading config from environment")
	}
	return cfg, nil
}

func (c Config) logLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel, eris.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return level, nil
}
