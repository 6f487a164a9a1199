// Package logger provides leveled logging for the storage core.
//
// The format follows "LEVEL | component | message" so log lines from the
// orchestrator, the TTL sweeper and the adapters line up in one stream.
// Loggers are cheap; each component creates its own with its name.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

// ParseLevel converts a string level to a Level.
// Unknown strings default to info.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// --------------------------------------------------------------------------
// Logger
// --------------------------------------------------------------------------

// Logger writes leveled, component-tagged log lines.
type Logger struct {
	name   string
	level  Level
	logger *log.Logger
}

// New creates a logger for the named component at info level.
func New(name string) *Logger {
	return &Logger{
		name:   name,
		level:  LevelInfo,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		l.log("DEBUG", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		l.log("INFO", format, args...)
	}
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= LevelWarning {
		l.log("WARN", format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LevelError {
		l.log("ERROR", format, args...)
	}
}

// log formats and writes a log line. Internal helper used by the public methods.
func (l *Logger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}
