package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Logger provides structured, leveled logging throughout the application.
// Output goes to stdout/stderr and, when created with NewFileLogger, is
// mirrored uncolored into a per-run file under the log directory.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger
	file  *os.File
}

// NewLogger creates a new Logger writing to stdout/stderr only.
func NewLogger() *Logger {
	return &Logger{
		info:  log.New(os.Stdout, "", 0),
		warn:  log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
		debug: log.New(os.Stdout, "", 0),
	}
}

// NewFileLogger creates a Logger that also appends to logDir/run_<ts>.log.
// Falls back to console-only logging if the file cannot be created.
func NewFileLogger(logDir string) *Logger {
	l := NewLogger()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		l.Warn("[logger] Cannot create log dir %q: %v", logDir, err)
		return l
	}
	path := filepath.Join(logDir, "run_"+time.Now().Format("20060102_150405")+".log")
	f, err := os.Create(path)
	if err != nil {
		l.Warn("[logger] Cannot create log file %q: %v", path, err)
		return l
	}
	l.file = f
	l.info = log.New(io.MultiWriter(os.Stdout, f), "", 0)
	l.warn = log.New(io.MultiWriter(os.Stdout, f), "", 0)
	l.err = log.New(io.MultiWriter(os.Stderr, f), "", 0)
	l.debug = log.New(io.MultiWriter(os.Stdout, f), "", 0)
	return l
}

// Close releases the run log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] INFO  %s", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] WARN  %s", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] ERROR %s", l.timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.debug.Printf(fmt.Sprintf("[%s] DEBUG %s", l.timestamp(), format), args...)
}
