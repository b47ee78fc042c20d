package logger_message

import (
	"enact/pkg/utilities"
	"enact/pkg/utilities/timeutil"
)

type LoggerMessage struct {
	Service   string           `json:"service"`
	Level     string           `json:"level"`
	Message   string           `json:"message"`
	Timestamp timeutil.TimeUTC `json:"timestamp"`
}

func (lm LoggerMessage) Serialize() ([]byte, error) {
	return utilities.Serialize(lm)
}
