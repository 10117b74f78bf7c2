package services

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions mirrors the logging section of the configuration
type LoggerOptions struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, file or both
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// NewLogger builds a zap logger. File output is rotated by lumberjack.
func NewLogger(opts LoggerOptions) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(opts.Format) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	var sinks []zapcore.WriteSyncer
	output := strings.ToLower(opts.Output)
	if output == "" || output == "stdout" || output == "both" {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if output == "file" || output == "both" {
		if opts.FilePath == "" {
			return nil, fmt.Errorf("log file path is required for output %q", opts.Output)
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}))
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("invalid log output %q", opts.Output)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
