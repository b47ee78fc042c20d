package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"enact/pkg/utilities/timeutil"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl   zerolog.Logger
	sink func(string, zerolog.Level, timeutil.TimeUTC)
}

// callerSkip hides write and the exported level method from the caller field.
const callerSkip = 2

func newZerolog(level zerolog.Level) zerolog.Logger {
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + callerSkip).
		Logger().
		Level(level)
}

func New() *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &Logger{zl: newZerolog(zerolog.DebugLevel)}
}

func NewFromConfig(cfg LoggerConfig) *Logger {
	if cfg.LogLevel == zerolog.NoLevel {
		cfg.LogLevel = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return &Logger{zl: newZerolog(cfg.LogLevel)}
}

// Nop discards everything, used by tests and library callers without a logger.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) WithOutput(w io.Writer) *Logger {
	l.zl = l.zl.Output(w)
	return l
}

func (l *Logger) WithLevel(level zerolog.Level) *Logger {
	l.zl = l.zl.Level(level)
	return l
}

func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{zl: l.zl.With().Logger(), sink: l.sink}
}

// WithField returns a child logger carrying the key on every entry.
func (l *Logger) WithField(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger(), sink: l.sink}
}

func (l *Logger) With() zerolog.Context {
	return l.zl.With()
}

// write emits one entry and feeds the sink. Fatal and panic entries reach
// the sink first since the event never returns.
func (l *Logger) write(level zerolog.Level, err error, msg string) {
	var event *zerolog.Event
	switch level {
	case zerolog.FatalLevel:
		l.activateSink(msg, level)
		event = l.zl.Fatal()
	case zerolog.PanicLevel:
		l.activateSink(msg, level)
		event = l.zl.Panic()
	default:
		event = l.zl.WithLevel(level)
	}
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)

	if level < zerolog.FatalLevel {
		l.activateSink(msg, level)
	}
}

func (l *Logger) Debug(msg string) { l.write(zerolog.DebugLevel, nil, msg) }

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(zerolog.DebugLevel, nil, fmt.Sprintf(format, v...))
}

func (l *Logger) Info(msg string) { l.write(zerolog.InfoLevel, nil, msg) }

func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(zerolog.InfoLevel, nil, fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(msg string) { l.write(zerolog.WarnLevel, nil, msg) }

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(zerolog.WarnLevel, nil, fmt.Sprintf(format, v...))
}

func (l *Logger) Error(err error, msg string) { l.write(zerolog.ErrorLevel, err, msg) }

func (l *Logger) Errorf(err error, format string, v ...interface{}) {
	l.write(zerolog.ErrorLevel, err, fmt.Sprintf(format, v...))
}

func (l *Logger) Fatal(err error, msg string) { l.write(zerolog.FatalLevel, err, msg) }

func (l *Logger) Fatalf(err error, format string, v ...interface{}) {
	l.write(zerolog.FatalLevel, err, fmt.Sprintf(format, v...))
}

func (l *Logger) Panic(err error, msg string) { l.write(zerolog.PanicLevel, err, msg) }

func (l *Logger) Panicf(err error, format string, v ...interface{}) {
	l.write(zerolog.PanicLevel, err, fmt.Sprintf(format, v...))
}

func (l *Logger) Log(level zerolog.Level, msg string) { l.write(level, nil, msg) }

func (l *Logger) Logf(level zerolog.Level, format string, v ...interface{}) {
	l.write(level, nil, fmt.Sprintf(format, v...))
}
