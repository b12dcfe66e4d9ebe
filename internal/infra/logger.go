package infra

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger собирает zap логгер по LoggerConfig.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// ExitCode пишет итог процесса и сбрасывает буфер логгера. os.Exit отложенные вызовы не выполняет,
// поэтому Sync делается здесь, а не через defer в main.
func ExitCode(logger *zap.Logger, service string, err error) int {
	code := 0
	if err != nil {
		logger.Error(service+" stopped with error", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}
