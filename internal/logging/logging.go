// Package logging builds the zap loggers used across the compiler pipeline.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level selects the verbosity of the root logger.
type Level int

const (
	// LevelNormal logs Info and above.
	LevelNormal Level = iota
	// LevelQuiet logs Warn and above only.
	LevelQuiet
	// LevelVerbose logs Debug and above.
	LevelVerbose
)

// LevelFromEnv resolves a Level from the CIL2CPP_LOG environment variable,
// falling back to def when unset or unrecognized.
func LevelFromEnv(def Level) Level {
	switch strings.ToLower(os.Getenv("CIL2CPP_LOG")) {
	case "debug", "verbose":
		return LevelVerbose
	case "warn", "quiet":
		return LevelQuiet
	case "info":
		return LevelNormal
	default:
		return def
	}
}

// New builds a root logger for the given level, writing human-readable
// console output to stderr.
func New(level Level) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	switch level {
	case LevelVerbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case LevelQuiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// zap's development config never fails to build in practice; fall
		// back to a no-op logger rather than panicking a compiler invocation.
		return zap.NewNop()
	}
	return logger
}

// Stage returns a child logger scoped to a single pipeline stage name, the
// shape every stage in internal/pipeline logs through.
func Stage(root *zap.Logger, name string) *zap.Logger {
	return root.With(zap.String("stage", name))
}
