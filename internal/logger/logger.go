package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It defaults to a no-op so packages can log
// before (or without) Init, e.g. in tests.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

func Init(logFilePath string, debug bool) error {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{logFilePath},
		ErrorOutputPaths: []string{logFilePath},
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l.Sugar()
	Log.Info("Logger initialized.")
	return nil
}

func Sync() {
	_ = Log.Sync()
}
