package utils

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

type LogLevel string

const (
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// LogEntry is one structured line on stdout. Data carries the request
// context (attempt codes, outcomes, artifact references).
type LogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Level     LogLevel    `json:"level"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Logger emits JSON log lines for the HTTP layer. The automation services
// log through the plain stdlib logger; this one exists so attempt-level
// events stay machine-parseable.
type Logger struct {
	logger *log.Logger
}

func NewLogger() *Logger {
	return &Logger{
		logger: log.New(os.Stdout, "", 0),
	}
}

func (l *Logger) Info(message string, data ...interface{}) {
	l.emit(INFO, message, "", data...)
}

func (l *Logger) Warn(message string, data ...interface{}) {
	l.emit(WARN, message, "", data...)
}

func (l *Logger) Error(message string, err error, data ...interface{}) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	l.emit(ERROR, message, errMsg, data...)
}

func (l *Logger) emit(level LogLevel, message, errMsg string, data ...interface{}) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Error:     errMsg,
	}
	if len(data) > 0 {
		entry.Data = data[0]
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Error marshaling log entry: %v", err)
		return
	}
	l.logger.Println(string(jsonBytes))
}

var GlobalLogger = NewLogger()

func LogInfo(message string, data ...interface{}) {
	GlobalLogger.Info(message, data...)
}

func LogWarn(message string, data ...interface{}) {
	GlobalLogger.Warn(message, data...)
}

func LogError(message string, err error, data ...interface{}) {
	GlobalLogger.Error(message, err, data...)
}
