package logger

import (
	"enact/pkg/utilities/timeutil"

	"github.com/rs/zerolog"
)

func AddSinkToLoggerInstance(loggerInstance *Logger, sinkFunction func(string, zerolog.Level, timeutil.TimeUTC)) {
	loggerInstance.sink = sinkFunction
}

func (l *Logger) activateSink(msg string, level zerolog.Level) {
	if l.sink != nil && level >= l.zl.GetLevel() {
		l.sink(msg, level, timeutil.NowUTC())
	}
}
