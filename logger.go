package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// newLogger builds a console logger on stderr at the given level.
// Colors are only used when stderr is a terminal.
func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.Level = atomicLevel
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.Sampling = nil
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if term.IsTerminal(int(os.Stderr.Fd())) {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}

// syncLogger flushes the logger. Sync on a terminal or pipe returns EINVAL or
// ENOTTY on some platforms, which is not worth reporting.
func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl") {
			return
		}
		fmt.Fprintf(os.Stderr, "Warning: logger sync failed: %v\n", err)
	}
}
