// Package logging builds the zap loggers used by the server, the CLI and
// the loaders.
package logging

import (
	"go.uber.org/zap"
)

// Config holds logging configuration
type Config struct {
	Level       string            `yaml:"level"`
	Format      string            `yaml:"format"` // "json" or "console"
	OutputPath  string            `yaml:"outputPath"`
	Fields      map[string]string `yaml:"fields"`
	Development bool              `yaml:"development"`
}

// New creates a logger from config. An empty or unknown level means info.
func New(config Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	fields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return logger.With(fields...), nil
}

// NewDefault returns a console logger at the given level, falling back to
// a no-op logger if zap cannot be built.
func NewDefault(level string) *zap.Logger {
	logger, err := New(Config{
		Level:  level,
		Format: "console",
		Fields: map[string]string{"service": "stressdb"},
	})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
