package logger

import (
	"fmt"
	"strings"

	"sequencer/pkg/errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface is what components take so tests can pass NewNop.
type Interface interface {
	Debug(message string, fields ...Field)
	Info(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Error(err error, fields ...Field)
	WithFields(fields ...Field) *Logger
	Sync() error
}

// Logger writes JSON lines through zap.
type Logger struct {
	zl *zap.Logger
}

type Field struct {
	Key   string
	Value any
}

func NewField(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

const messageKey = "message"

func (level Level) zapLevel() zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Option adjusts the zap production config before the logger is built.
type Option func(*zap.Config)

// WithLoggingLevel sets the minimum level written. Unknown levels mean info.
func WithLoggingLevel(level Level) Option {
	return func(c *zap.Config) { c.Level = zap.NewAtomicLevelAt(level.zapLevel()) }
}

// WithEncoding selects "json" or "console".
func WithEncoding(encoding string) Option {
	return func(c *zap.Config) { c.Encoding = encoding }
}

// WithOutputPaths replaces stderr as the sink.
func WithOutputPaths(paths []string) Option {
	return func(c *zap.Config) { c.OutputPaths = paths }
}

func NewLogger(opts ...Option) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.MessageKey = messageKey
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	for _, opt := range opts {
		opt(&cfg)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zl: zl}, nil
}

func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func (l *Logger) Debug(message string, fields ...Field) { l.zl.Debug(message, zapFields(fields)...) }
func (l *Logger) Info(message string, fields ...Field)  { l.zl.Info(message, zapFields(fields)...) }
func (l *Logger) Warn(message string, fields ...Field)  { l.zl.Warn(message, zapFields(fields)...) }

// Error logs err at error level. A stack carried by err replaces the
// one zap takes at the call site.
func (l *Logger) Error(err error, fields ...Field) {
	ce := l.zl.Check(zapcore.ErrorLevel, err.Error())
	if ce == nil {
		return
	}
	if st, ok := err.(errors.StackTracer); ok {
		ce.Stack = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
	}
	ce.Write(zapFields(fields)...)
}

func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(zapFields(fields)...)}
}

func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func zapFields(fields []Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
