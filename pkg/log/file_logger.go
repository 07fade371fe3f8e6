package log

import (
	"os"
	"path/filepath"
	"sync"
)

// FileExt is the extension of event capture files.
const FileExt = ".splog"

// FileLogger writes events to a file in CBOR format.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	file   *os.File
	events *eventWriter
	mu     sync.Mutex
	closed bool
	count  int
	errs   int
}

// NewFileLogger opens path for appending, creating it and its parent
// directory if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:   f,
		events: newEventWriter(f),
	}, nil
}

// Log writes an event to the file. Encoding failures are counted, not returned.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.events.write(event); err != nil {
		l.errs++
		return
	}
	l.count++
}

// Stats returns the number of events written and the number dropped.
func (l *FileLogger) Stats() (written, dropped int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, l.errs
}

// Path returns the file name.
func (l *FileLogger) Path() string {
	return l.file.Name()
}

// Close closes the file. Later Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
