package core

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	z zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(z zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{z: z}
}

// NewJSONLogger writes JSON lines at or above level to w (stderr if nil).
func NewJSONLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	return &ZerologLogger{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewConsoleLogger writes human readable lines at or above level to w (stderr if nil).
func NewConsoleLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	return &ZerologLogger{z: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

func (l *ZerologLogger) Debug(msg string, fields ...Field) { emit(l.z.Debug(), msg, fields) }
func (l *ZerologLogger) Info(msg string, fields ...Field)  { emit(l.z.Info(), msg, fields) }
func (l *ZerologLogger) Warn(msg string, fields ...Field)  { emit(l.z.Warn(), msg, fields) }
func (l *ZerologLogger) Error(msg string, fields ...Field) { emit(l.z.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.AnErr(f.Key, v)
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case uint32:
			e = e.Uint32(f.Key, v)
		case uint64:
			e = e.Uint64(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}

// ParseLogLevel maps a level name ("debug", "info", ...) to a zerolog level.
func ParseLogLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(name)
}
