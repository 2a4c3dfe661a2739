package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes trading activity as JSON lines to a per-symbol log file,
// optionally mirrored to a human readable console writer.
type Logger struct {
	symbol   string
	interval string
	logDir   string
	logFile  *os.File
	zl       zerolog.Logger
	mu       sync.Mutex
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Options controls where a Logger writes
type Options struct {
	Dir     string
	Console bool
	Level   zerolog.Level
}

// NewLoggerWithOptions creates a file logger with explicit options
func NewLoggerWithOptions(symbol, interval string, opts Options) (*Logger, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{symbol: symbol, interval: interval, logDir: opts.Dir}
	file, err := os.OpenFile(l.GetLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l.logFile = file

	var out io.Writer = file
	if opts.Console {
		out = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	}
	l.zl = newZerolog(out, opts.Level, symbol, interval)

	l.zl.Info().
		Str("category", string(LogLevelStatus)).
		Time("started", time.Now()).
		Msg("trading session started")

	return l, nil
}

// New creates a logger writing to w, without a backing file
func New(w io.Writer, symbol, interval string) *Logger {
	return &Logger{
		symbol:   symbol,
		interval: interval,
		zl:       newZerolog(w, zerolog.DebugLevel, symbol, interval),
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newZerolog(w io.Writer, level zerolog.Level, symbol, interval string) zerolog.Logger {
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if symbol != "" {
		ctx = ctx.Str("symbol", symbol)
	}
	if interval != "" {
		ctx = ctx.Str("interval", interval)
	}
	return ctx.Logger()
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	var ev *zerolog.Event
	switch level {
	case LogLevelWarning:
		ev = l.zl.Warn()
	case LogLevelError:
		ev = l.zl.Error()
	default:
		ev = l.zl.Info()
	}
	ev.Str("category", string(level)).Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs market status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	if l == nil {
		return
	}
	l.zl.Error().Str("category", string(LogLevelError)).Err(err).Msg(context)
}

// Close writes the session footer and closes the log file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	l.zl.Info().
		Str("category", string(LogLevelStatus)).
		Time("ended", time.Now()).
		Msg("trading session ended")

	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	filename := fmt.Sprintf("%s_%s_%s.log", l.symbol, l.interval, time.Now().Format("2006-01-02"))
	return filepath.Join(l.logDir, filename)
}
