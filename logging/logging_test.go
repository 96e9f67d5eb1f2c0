package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()

	// A regular file where a directory is expected makes MkdirAll fail.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}

	tests := []struct {
		name          string
		logLevel      string
		logFilePath   string
		expectedError bool
		expectedDebug bool
	}{
		{
			name:          "Valid debug log level with valid log file path",
			logLevel:      "debug",
			logFilePath:   filepath.Join(dir, "test_debug.log"),
			expectedError: false,
			expectedDebug: true,
		},
		{
			name:          "Valid info log level with valid log file path",
			logLevel:      "info",
			logFilePath:   filepath.Join(dir, "test_info.log"),
			expectedError: false,
			expectedDebug: false,
		},
		{
			name:          "Nested directory is created",
			logLevel:      "info",
			logFilePath:   filepath.Join(dir, "a", "b", "test.log"),
			expectedError: false,
			expectedDebug: false,
		},
		{
			name:          "Unwritable log directory",
			logLevel:      "debug",
			logFilePath:   filepath.Join(blocker, "test.log"),
			expectedError: true,
		},
		{
			name:          "Invalid log level",
			logLevel:      "loud",
			logFilePath:   filepath.Join(dir, "test_level.log"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.logLevel, tt.logFilePath, nil)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Init() error = %v, expectedError %v", err, tt.expectedError)
			}
			if tt.expectedError {
				return
			}

			InfoLogger.Info().Msg("This is an info message")
			ErrorLogger.Error().Msg("This is an error message")
			DebugLogger.Debug().Msg("This is a debug message")

			data, err := os.ReadFile(tt.logFilePath)
			if err != nil {
				t.Fatalf("Failed to read log file: %v", err)
			}
			logContent := string(data)

			if !strings.Contains(logContent, "This is an info message") {
				t.Errorf("Info log message not found in log file: %s", logContent)
			}
			if !strings.Contains(logContent, "This is an error message") {
				t.Errorf("Error log message not found in log file: %s", logContent)
			}
			if tt.expectedDebug && !strings.Contains(logContent, "This is a debug message") {
				t.Errorf("Expected debug log message not found in log file: %s", logContent)
			}
			if !tt.expectedDebug && strings.Contains(logContent, "This is a debug message") {
				t.Errorf("Unexpected debug log message found in log file: %s", logContent)
			}
		})
	}
}

func TestInitConsole(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "console.log")
	if err := Init("info", path, &console); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Default().Log(zerolog.WarnLevel, "probe failed")

	if !strings.Contains(console.String(), "probe failed") {
		t.Errorf("console output missing message: %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"level":"warn"`) {
		t.Errorf("log file missing warn level: %s", data)
	}
}

func TestSinkWith(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	sink := NewSink(zerolog.New(&buf)).With("run_id", "abc")

	sink.Log(zerolog.InfoLevel, "hello")

	got := buf.String()
	if !strings.Contains(got, `"run_id":"abc"`) || !strings.Contains(got, `"message":"hello"`) {
		t.Errorf("unexpected sink output: %s", got)
	}
	if !strings.Contains(got, `"level":"info"`) {
		t.Errorf("expected info level in output: %s", got)
	}
}
