package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	initOnce sync.Once
	mu       sync.RWMutex
	atom     = zap.NewAtomicLevel()
	sugar    *zap.SugaredLogger
)

// ParseLevel maps DEBUG and LOG_LEVEL style values to a LogLevel.
// DEBUG wins when it holds a truthy value.
func ParseLevel(debug, level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(debug)) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func fromZap(l zapcore.Level) LogLevel {
	switch {
	case l <= zapcore.DebugLevel:
		return LevelDebug
	case l == zapcore.InfoLevel:
		return LevelInfo
	case l == zapcore.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}

func initLogger() {
	initOnce.Do(func() {
		atom.SetLevel(ParseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL")).zapLevel())

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			atom,
		)

		mu.Lock()
		sugar = zap.New(core).Sugar()
		mu.Unlock()
	})
}

func logger() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// SetOutput replaces the sink, used by tests to capture output.
func SetOutput(ws zapcore.WriteSyncer) {
	initLogger()
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	mu.Lock()
	sugar = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, atom)).Sugar()
	mu.Unlock()
}

// SetLevel changes the active level at runtime.
func SetLevel(l LogLevel) {
	initLogger()
	atom.SetLevel(l.zapLevel())
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLogger()
	return fromZap(atom.Level())
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logger().Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logger().Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logger().Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logger().Errorf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	logger().Fatalf(format, args...)
}

// Printf logs at info level regardless of the configured threshold.
func Printf(format string, args ...interface{}) {
	l := logger()
	if !atom.Enabled(zapcore.InfoLevel) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		return
	}
	l.Infof(format, args...)
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = logger().Sync()
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
