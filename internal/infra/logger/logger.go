package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Logger writes leveled lines to a log file and, optionally, to stdout.
// An empty file path disables the file sink (useful for tests and CLI runs).
type Logger struct {
	fileLogger    *log.Logger
	file          *os.File
	level         Level
	includeStdout bool
}

func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	l := &Logger{level: level, includeStdout: includeStdout}

	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		l.file = f
		l.fileLogger = log.New(f, "", 0)
	}

	return l, nil
}

// Nop returns a logger that discards everything. Test helper.
func Nop() *Logger {
	return &Logger{level: LevelFatal + 1}
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) log(lvl Level, tag string, format string, v ...any) {
	if lvl < l.level {
		return
	}

	line := fmt.Sprintf("%s [%s] %s",
		time.Now().Format("2006-01-02 15:04:05"), tag, fmt.Sprintf(format, v...))

	if l.fileLogger != nil {
		l.fileLogger.Println(line)
	}

	// Keep stdout readable: debug lines stay in the file only
	if l.includeStdout && lvl >= LevelInfo {
		fmt.Println(line)
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, "DEBUG", f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, "INFO", f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, "WARN", f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, "ERROR", f, v...) }

func (l *Logger) Fatal(f string, v ...any) {
	l.log(LevelFatal, "FATAL", f, v...)
	os.Exit(1)
}

// Write lets libraries that expect an io.Writer (echo, net/http) log
// through us. Trailing newlines are stripped to avoid blank lines.
func (l *Logger) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
