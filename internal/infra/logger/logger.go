package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const defaultService = "powerstats"

// Config drives how the zap logger is built.
type Config struct {
	Development bool
	Level       string
	// Encoding is "console" or "json"; empty picks console in development.
	Encoding string
	// Service is attached to every entry; defaults to "powerstats".
	Service string
}

// ConfigFromEnv reads APP_ENV, LOG_LEVEL, LOG_ENCODING and SERVICE_NAME.
// Anything other than APP_ENV=production is treated as development.
func ConfigFromEnv() Config {
	return Config{
		Development: os.Getenv("APP_ENV") != "production",
		Level:       os.Getenv("LOG_LEVEL"),
		Encoding:    os.Getenv("LOG_ENCODING"),
		Service:     os.Getenv("SERVICE_NAME"),
	}
}

var (
	mu     sync.RWMutex
	global *zap.Logger
)

// MustInit builds the process logger and installs it globally. It panics on
// an invalid level or encoding.
func MustInit(cfg Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	global = l
	return l
}

// L returns the global logger. Before MustInit it falls back to a logger
// built from the environment.
func L() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		if fallback, err := New(ConfigFromEnv()); err == nil {
			global = fallback
		} else {
			global = zap.NewNop()
		}
	}
	return global
}

// Named returns a child of the global logger for one component, e.g.
// "ingest" or "beacon-consumer".
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Sync flushes the global logger. Errors from syncing a terminal are ignored.
func Sync() error {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l == nil {
		return nil
	}

	err := l.Sync()
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrInvalid) {
		return nil
	}
	return err
}

// New returns a zap.Logger configured according to cfg.
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Encoding {
	case "":
	case "console", "json":
		zapCfg.Encoding = cfg.Encoding
	default:
		return nil, fmt.Errorf("logger: unsupported encoding %q", cfg.Encoding)
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	service := cfg.Service
	if service == "" {
		service = defaultService
	}

	zapCfg.EncoderConfig = encoderConfig(zapCfg.Encoding == "console" && colorOutput())
	zapCfg.InitialFields = map[string]interface{}{"service": service}

	return zapCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func encoderConfig(colored bool) zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if colored {
		enc.ConsoleSeparator = " | "
		enc.EncodeLevel = coloredLevel
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly + ".000")
	}
	return enc
}

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel: "\x1b[36m",
	zapcore.InfoLevel:  "\x1b[32m",
	zapcore.WarnLevel:  "\x1b[33m",
	zapcore.ErrorLevel: "\x1b[31m",
}

func coloredLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color, ok := levelColors[level]
	if !ok {
		color = "\x1b[35m"
	}
	enc.AppendString(color + fmt.Sprintf("%-5s", level.CapitalString()) + "\x1b[0m")
}

// colorOutput reports whether stdout is a terminal that wants colour.
func colorOutput() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
