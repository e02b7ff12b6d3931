// Package logger builds the zap loggers used by sc2fix.
//
// Loggers are constructed once by the CLI and passed down explicitly; there is
// no package-level logger.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Outcome field values attached to per-file log lines.
const (
	OutcomeSuccess         = "success"
	OutcomePatternNotFound = "pattern_not_found"
	OutcomeInvalidFormat   = "invalid_format"
	OutcomeIOFailure       = "io_failure"
	OutcomeCancelled       = "cancelled"
	OutcomeSkipped         = "skipped"
)

// LogConfig holds the logging configuration
type LogConfig struct {
	Level       string
	OutputPath  string
	MaxSize     int // megabytes
	MaxBackups  int
	MaxAge      int // days
	Compress    bool
	Development bool
	EnableJSON  bool
	// Console also tees log lines to stderr.
	Console bool
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *LogConfig {
	home, _ := os.UserHomeDir()
	return &LogConfig{
		Level:       "info",
		OutputPath:  filepath.Join(home, ".sc2fix", "logs", "sc2fix.log"),
		MaxSize:     10,
		MaxBackups:  3,
		MaxAge:      30,
		Compress:    true,
		Development: false,
		EnableJSON:  false,
		Console:     true,
	}
}

// New builds a logger from cfg. An empty OutputPath disables the rotated file
// output; Console adds stderr.
func New(cfg *LogConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.EnableJSON {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		if cfg.Development {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writers []zapcore.WriteSyncer

	if cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
			return nil, err
		}
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.OutputPath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}))
	}

	if cfg.Console || cfg.Development || len(writers) == 0 {
		writers = append(writers, zapcore.Lock(os.Stderr))
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(writers...),
		zap.NewAtomicLevelAt(level),
	)

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...), nil
}

// OutcomeField tags a per-file log line with its outcome.
func OutcomeField(outcome string) zap.Field {
	return zap.String("outcome", outcome)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
