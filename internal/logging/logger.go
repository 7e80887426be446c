package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"avance/internal"
)

// New builds the process logger. format is "json" or "console".
func New(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// Advisories writes each advisory at the matching level.
func Advisories(logger *zap.Logger, advisories []internal.Advisory) {
	for _, a := range advisories {
		fields := []zap.Field{zap.String("source", a.Source)}
		switch a.Level {
		case internal.LevelError:
			logger.Error(a.Message, fields...)
		case internal.LevelWarning:
			logger.Warn(a.Message, fields...)
		default:
			logger.Info(a.Message, fields...)
		}
	}
}
