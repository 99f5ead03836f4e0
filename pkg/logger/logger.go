// Package logger provides the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared logger. It defaults to a no-op logger so library
// code can log before Init is called (and during tests).
var Log = zap.NewNop()

// Init replaces Log with a real logger. With a file path, production
// JSON output goes to both the file and stdout; otherwise development
// console output. Unknown levels fall back to info.
func Init(level string, logFile string) error {
	cfg := zap.NewDevelopmentConfig()
	if logFile != "" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{logFile, "stdout"}
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = built
	return nil
}

// Sync flushes buffered log entries.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}
