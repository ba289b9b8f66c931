// Package logger is a leveled printf-style logger backed by zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// ParseLevel maps a level name to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

type Logger struct {
	mu  sync.RWMutex
	cfg Config
	zl  zerolog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Config controls output. Colorize selects zerolog's console writer; without
// it every line is a JSON object.
type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Prefix:     "",
		Colorize:   true,
		ShowCaller: false,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	l := &Logger{cfg: cfg}
	l.zl = build(cfg)
	return l
}

func build(cfg Config) zerolog.Logger {
	var w io.Writer = cfg.Output
	if cfg.Colorize {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: cfg.TimeFormat}
	}

	ctx := zerolog.New(w).Level(cfg.Level.zerolog()).With()
	if cfg.ShowTime {
		ctx = ctx.Timestamp()
	}
	if cfg.ShowCaller {
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1)
	}
	if cfg.Prefix != "" {
		ctx = ctx.Str("component", cfg.Prefix)
	}
	return ctx.Logger()
}

func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		if os.Getenv("LOG_FORMAT") == "json" {
			cfg.Colorize = false
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

func (l *Logger) update(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.cfg)
	l.zl = build(l.cfg)
}

func (l *Logger) SetLevel(level LogLevel) {
	l.update(func(c *Config) { c.Level = level })
}

func (l *Logger) SetOutput(w io.Writer) {
	l.update(func(c *Config) { c.Output = w })
}

func (l *Logger) SetColorize(colorize bool) {
	l.update(func(c *Config) { c.Colorize = colorize })
}

func (l *Logger) SetShowCaller(show bool) {
	l.update(func(c *Config) { c.ShowCaller = show })
}

// With returns a child logger tagged with component name.
func (l *Logger) With(component string) *Logger {
	l.mu.RLock()
	cfg := l.cfg
	l.mu.RUnlock()
	cfg.Prefix = component
	return New(cfg)
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	zl := l.zl
	return &zl
}

func (l *Logger) event(level LogLevel) *zerolog.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch level {
	case DEBUG:
		return l.zl.Debug()
	case INFO:
		return l.zl.Info()
	case WARN:
		return l.zl.Warn()
	case ERROR:
		return l.zl.Error()
	default:
		return l.zl.Fatal()
	}
}

// Debugf logs a formatted message at DEBUG level
func (l *Logger) Debugf(format string, args ...any) {
	l.event(DEBUG).Msgf(format, args...)
}

// Infof logs a formatted message at INFO level
func (l *Logger) Infof(format string, args ...any) {
	l.event(INFO).Msgf(format, args...)
}

// Warnf logs a formatted message at WARN level
func (l *Logger) Warnf(format string, args ...any) {
	l.event(WARN).Msgf(format, args...)
}

// Errorf logs a formatted message at ERROR level
func (l *Logger) Errorf(format string, args ...any) {
	l.event(ERROR).Msgf(format, args...)
}

// Fatalf logs a formatted message at FATAL level and exits
func (l *Logger) Fatalf(format string, args ...any) {
	l.event(FATAL).Msgf(format, args...)
}

// Package-level convenience functions using the default logger

func Debugf(format string, args ...any) {
	GetLogger().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	GetLogger().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	GetLogger().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	GetLogger().Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	GetLogger().Fatalf(format, args...)
}

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}
