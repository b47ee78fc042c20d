package logger

import "sync/atomic"

type LoggerArg struct {
	Key   string
	Value string
}

// GlobalLoggerConfig holds the fields stamped on every line of the process logger.
type GlobalLoggerConfig struct {
	Args []LoggerArg
}

var processLogger atomic.Pointer[Logger]

// InitDefaultLogger installs the process logger. Only the first call wins.
func InitDefaultLogger(config GlobalLoggerConfig) {
	if processLogger.Load() != nil {
		return
	}
	l := New()
	fields := l.zl.With()
	for _, arg := range config.Args {
		fields = fields.Str(arg.Key, arg.Value)
	}
	l.zl = fields.Logger()
	processLogger.CompareAndSwap(nil, l)
}

func Default() *Logger {
	l := processLogger.Load()
	if l == nil {
		panic("logger: Default called before InitDefaultLogger")
	}
	return l
}
