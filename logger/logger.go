// Package logger provides the process-wide zap logger used by beaconmesh.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() {
	SetLogger(New(os.Stderr, level))
}

// New creates a console logger writing to w. A nil level uses the shared level.
func New(w io.Writer, enabler zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	if enabler == nil {
		enabler = level
	}

	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "message",
		LevelKey:         "level",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), enabler)
	return zap.New(core, options...).Sugar()
}

// ParseLevel converts a level name to a zap level. Unknown names map to info.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// SetLevel changes the level of every logger built on the shared level
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// L returns the global logger
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// SetLogger replaces the global logger and returns a func restoring the previous one
func SetLogger(l *zap.SugaredLogger) func() {
	mu.Lock()
	defer mu.Unlock()
	prev := global
	global = l
	return func() { SetLogger(prev) }
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...any) {
	L().Debugf(format, args...)
}

// Infof logs a formatted info message
func Infof(format string, args ...any) {
	L().Infof(format, args...)
}

// Warnf logs a formatted warning
func Warnf(format string, args ...any) {
	L().Warnf(format, args...)
}

// Errorf logs a formatted error
func Errorf(format string, args ...any) {
	L().Errorf(format, args...)
}

// InfoKV logs a message with key-value pairs
func InfoKV(message string, kvs ...any) {
	L().Infow(message, kvs...)
}
