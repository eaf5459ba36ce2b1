package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger builds the process logger. LOG_LEVEL=debug switches to the
// development encoder; any other unparsable level falls back to info.
func (c Config) Logger() (*zap.Logger, error) {
	level := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build(zap.Fields(zap.String("service", c.ServiceName)))
}
