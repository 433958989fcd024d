package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init builds the process-wide sugared logger. Mode "production" emits JSON;
// anything else uses the console encoder. Level accepts zap level names.
func Init(mode, level string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if parsed, err := zapcore.ParseLevel(strings.ToLower(level)); err == nil {
			lvl = parsed
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	mu.Lock()
	logger = zl.Sugar()
	mu.Unlock()
	return logger, nil
}

// L returns the process logger, falling back to a no-op development logger
// so packages can log before Init runs (mainly in tests).
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		zl, _ := zap.NewDevelopment(zap.AddCallerSkip(1))
		logger = zl.Sugar()
	}
	return logger
}

// Sync flushes buffered log entries
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
