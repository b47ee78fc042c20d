package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"enact/pkg/utilities/timeutil"

	"github.com/rs/zerolog"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   LoggerConfig
		expected zerolog.Level
	}{
		{
			name:     "Default log level when no level specified",
			config:   LoggerConfig{LogLevel: zerolog.NoLevel},
			expected: zerolog.InfoLevel,
		},
		{
			name:     "Debug log level",
			config:   LoggerConfig{LogLevel: zerolog.DebugLevel},
			expected: zerolog.DebugLevel,
		},
		{
			name:     "Error log level",
			config:   LoggerConfig{LogLevel: zerolog.ErrorLevel},
			expected: zerolog.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFromConfig(tt.config)
			if l == nil {
				t.Fatal("Expected logger to be created, got nil")
			}
			if got := l.zl.GetLevel(); got != tt.expected {
				t.Errorf("Expected level %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLoggerWithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithLevel(zerolog.ErrorLevel)

	l.Info("info message")
	l.Error(errors.New("test error"), "error message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("Info message should not appear when level is set to Error")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should appear when level is set to Error")
	}
	if !strings.Contains(output, "test error") {
		t.Error("Expected output to contain error details")
	}
}

func TestLoggerFormatted(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithLevel(zerolog.DebugLevel)

	l.Debugf("debug %s", "formatting")
	l.Infof("info with %d items", 5)
	l.Warnf("warning with %s", "details")

	output := buf.String()
	for _, want := range []string{"debug formatting", "info with 5 items", "warning with details", `"level":"warn"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithField("component", "gating")

	l.Info("field message")

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	if entry["component"] != "gating" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
	if entry["message"] != "field message" {
		t.Error("Expected message field to match input")
	}
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithLevel(zerolog.InfoLevel)

	var received []string
	var levels []zerolog.Level
	AddSinkToLoggerInstance(l, func(msg string, level zerolog.Level, ts timeutil.TimeUTC) {
		received = append(received, msg)
		levels = append(levels, level)
		if ts.T == 0 {
			t.Error("Expected sink timestamp to be set")
		}
	})

	l.Debug("filtered")
	l.Infof("attestation %s created", "0xabc")
	l.Error(errors.New("boom"), "failed")

	if len(received) != 2 {
		t.Fatalf("Expected 2 sink messages, got %d: %v", len(received), received)
	}
	if received[0] != "attestation 0xabc created" || levels[0] != zerolog.InfoLevel {
		t.Errorf("Unexpected first sink message %q (%v)", received[0], levels[0])
	}
	if levels[1] != zerolog.ErrorLevel {
		t.Errorf("Expected error level, got %v", levels[1])
	}
}

func TestLoggerConfigConvertToDomain(t *testing.T) {
	result := LoggerConfigJson{LogLevel: int8(zerolog.WarnLevel)}.ConvertToDomain()
	if result.LogLevel != zerolog.WarnLevel {
		t.Errorf("Expected LogLevel %v, got %v", zerolog.WarnLevel, result.LogLevel)
	}
}

func TestInitDefaultLogger(t *testing.T) {
	InitDefaultLogger(GlobalLoggerConfig{
		Args: []LoggerArg{
			{Key: "application", Value: "enact-test"},
			{Key: "version", Value: "1.0.0"},
		},
	})

	if Default() == nil {
		t.Fatal("Expected default logger to be initialized, got nil")
	}
}
