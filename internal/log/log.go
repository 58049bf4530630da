package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options configures Setup. File is optional; when set, a JSON copy of every
// line is written there with size-based rotation.
type Options struct {
	Level      Level
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger *zap.SugaredLogger
	closer func() error
)

func init() {
	logger = zap.New(consoleCore(os.Stderr)).Sugar()
}

// consoleCore writes the human-readable stderr format:
// 2025-01-01T00:00:00.000+0900	INFO	msg	{"key": "value"}
func consoleCore(w zapcore.WriteSyncer) zapcore.Core {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.CallerKey = ""
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(w), level)
}

// Setup replaces the process logger. It is safe to call more than once.
func Setup(opts Options) {
	SetLevel(opts.Level)

	cores := []zapcore.Core{consoleCore(os.Stderr)}
	var fileCloser func() error
	if opts.File != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "time"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(rot), level))
		fileCloser = rot.Close
	}

	mu.Lock()
	old := closer
	logger = zap.New(zapcore.NewTee(cores...)).Sugar()
	closer = fileCloser
	mu.Unlock()

	if old != nil {
		_ = old()
	}
}

func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		level.SetLevel(zapcore.WarnLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	current().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Errorw(msg, extended...)
}

// Sync flushes buffered entries and closes the rotated file, if any.
func Sync() error {
	_ = current().Sync()
	mu.Lock()
	c := closer
	closer = nil
	mu.Unlock()
	if c != nil {
		return c()
	}
	return nil
}
