// Package logging builds the zap logger shared by every ds command: a
// console core on stderr teed with the daily log file under logs/.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/davidahmann/dotscript/core/fsx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	ShowTrace   bool
	Development bool
	Color       bool
	// LogsDir enables the daily file core when the directory exists.
	LogsDir string
	Console io.Writer
	Now     func() time.Time
}

// DefaultConfig logs info and above to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Console: os.Stderr}
}

// New creates a logger with the provided configuration.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.ShowTrace {
		level = zapcore.DebugLevel
	}
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig(cfg.Color)),
			zapcore.Lock(zapcore.AddSync(console)),
			zap.NewAtomicLevelAt(level),
		),
	}
	if cfg.LogsDir != "" && fsx.IsDir(cfg.LogsDir) {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileEncoderConfig()),
			&DailyFile{Dir: cfg.LogsDir, Now: cfg.Now},
			zap.NewAtomicLevelAt(zapcore.DebugLevel),
		))
	}
	options := []zap.Option{}
	if cfg.Development {
		options = append(options, zap.AddCaller(), zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), options...), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// DailyFile is a zapcore.WriteSyncer appending each entry to
// <Dir>/YYYY-MM-DD.log under the fsx append lock.
type DailyFile struct {
	Dir string
	Now func() time.Time
}

// Path is the log file for the given instant.
func (d *DailyFile) Path(at time.Time) string {
	return filepath.Join(d.Dir, at.Format("2006-01-02")+".log")
}

func (d *DailyFile) Write(entry []byte) (int, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	line := entry
	for len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if err := fsx.AppendLineLocked(d.Path(now()), line, 0o600); err != nil {
		return 0, err
	}
	return len(entry), nil
}

func (d *DailyFile) Sync() error {
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return parsed, nil
}

func consoleEncoderConfig(color bool) zapcore.EncoderConfig {
	levelEncoder := zapcore.CapitalLevelEncoder
	if color {
		levelEncoder = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:        zapcore.OmitKey,
		LevelKey:       "L",
		NameKey:        zapcore.OmitKey,
		CallerKey:      "C",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "M",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "T",
		LevelKey:         "L",
		NameKey:          "N",
		CallerKey:        zapcore.OmitKey,
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "M",
		StacktraceKey:    zapcore.OmitKey,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: "\t",
	}
}
