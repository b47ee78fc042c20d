package rabbitmq

import (
	"fmt"

	logger_message "enact/pkg/utilities/logger"
	"enact/pkg/utilities/timeutil"

	"github.com/rs/zerolog"
)

// CreateRabbitmqLoggerSink forwards log lines to a publisher. A nil publisher
// yields a sink that drops everything.
func CreateRabbitmqLoggerSink(service string, publisher IRabbitmqPublisher) func(string, zerolog.Level, timeutil.TimeUTC) {
	if publisher == nil {
		return func(string, zerolog.Level, timeutil.TimeUTC) {}
	}
	return func(msg string, level zerolog.Level, timestamp timeutil.TimeUTC) {
		loggerMessage := logger_message.LoggerMessage{
			Service:   service,
			Level:     level.String(),
			Message:   msg,
			Timestamp: timestamp,
		}

		err := publisher.Publish(loggerMessage)
		if err != nil {
			// the logger itself would recurse into this sink
			fmt.Printf("Failed to publish log message to RabbitMQ: %v\n", err)
		}
	}
}
