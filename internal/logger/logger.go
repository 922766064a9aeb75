package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/cospa/internal/version"
)

// presets maps an environment name to its base zap config.
var presets = map[string]func() zap.Config{
	"prod":   productionConfig,
	"local":  zap.NewDevelopmentConfig,
	"dev":    zap.NewDevelopmentConfig,
	"docker": zap.NewDevelopmentConfig,
	"test":   zap.NewDevelopmentConfig,
}

// productionConfig is unsampled JSON with ISO8601 timestamps.
func productionConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.MessageKey = "message"
	return cfg
}

// NewLogger builds the process logger for env (prod, local, dev, docker, test).
// A non-empty level overrides the preset's level.
func NewLogger(env string, level ...string) (*zap.Logger, error) {
	preset, ok := presets[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	cfg := preset()

	if len(level) > 0 && level[0] != "" {
		lvl, err := zapcore.ParseLevel(level[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.With(zap.String("service", "cospa"), zap.String("version", version.Version)), nil
}
