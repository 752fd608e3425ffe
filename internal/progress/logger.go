package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// ErrorLogger records failed scans as JSON lines in a log file and mirrors
// them to the run logger.
type ErrorLogger struct {
	mu      sync.Mutex
	logFile string
	count   int
	file    *os.File
	sink    zerolog.Logger
	mirror  zerolog.Logger
}

// NewErrorLogger creates a new error logger. An empty logFile keeps errors in
// memory only.
func NewErrorLogger(logFile string, mirror zerolog.Logger) (*ErrorLogger, error) {
	l := &ErrorLogger{
		logFile: logFile,
		mirror:  mirror,
		sink:    zerolog.New(io.Discard),
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, fmt.Errorf("could not create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		l.file = file
		l.sink = zerolog.New(file).With().Timestamp().Logger()
	}

	return l, nil
}

// Log records an error for a scan.
func (l *ErrorLogger) Log(name, errorMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	l.sink.Error().Str("scan", name).Msg(errorMsg)
	l.mirror.Error().Str("scan", name).Msg(errorMsg)
}

// Summary returns a summary of logged errors.
func (l *ErrorLogger) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return "No errors"
	}
	if l.logFile == "" {
		return fmt.Sprintf("%d errors", l.count)
	}
	return fmt.Sprintf("%d errors logged to %s", l.count, l.logFile)
}

// ErrorCount returns the number of logged errors.
func (l *ErrorLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close closes the log file.
func (l *ErrorLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
