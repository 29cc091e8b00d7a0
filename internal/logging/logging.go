// Package logging builds the zap.SugaredLogger used by cmd/redhub-kv,
// rotating to disk through lumberjack when a file is configured. Adapted
// from packetd's logger package (packetd-packetd/logger/logger.go), trimmed
// to the single construction the server needs instead of that package's
// global mutable logger.
package logging

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// Filename, if non-empty, routes logs through a rotating lumberjack
	// file sink instead of stderr.
	Filename   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

func (o Options) withDefaults() Options {
	if o.Level == "" {
		o.Level = "info"
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 64
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 7
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 3
	}
	return o
}

func parseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// New builds a SugaredLogger per Options. With no Filename it logs to
// stderr; otherwise it writes to a lumberjack-rotated file.
func New(opt Options) (*zap.SugaredLogger, error) {
	opt = opt.withDefaults()

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var w zapcore.WriteSyncer
	if opt.Filename == "" {
		w = zapcore.AddSync(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(opt.Filename), 0o755); err != nil {
			return nil, errors.Wrapf(err, "logging: create log directory for %s", opt.Filename)
		}
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    opt.MaxSizeMB,
			MaxAge:     opt.MaxAgeDays,
			MaxBackups: opt.MaxBackups,
			LocalTime:  true,
		})
	}

	core := zapcore.NewCore(encoder, w, parseLevel(opt.Level))
	logger := zap.New(core, zap.AddCaller())
	return logger.Sugar(), nil
}
