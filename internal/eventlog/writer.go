package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// FilePrefix starts the name of every event file.
const FilePrefix = "events.out.tfevents."

var fileSeq atomic.Int64

// Writer appends events to a single event file inside a run's log directory.
// It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	path string
}

// Open creates a new event file in dir and writes its version record. The
// caller owns the writer and must Close it.
func Open(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}

	now := time.Now()
	name := fmt.Sprintf("%s%010d.%s.%d.%06d.v2", FilePrefix, now.Unix(), host, os.Getpid(), fileSeq.Add(1))
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event file: %w", err)
	}

	w := &Writer{file: file, buf: bufio.NewWriter(file), path: path}
	if err := w.Write(Event{WallTime: now, FileVersion: FileVersion}); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Write appends one event and flushes it so readers see complete records.
func (w *Writer) Write(e Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("event writer for %s is closed", w.path)
	}
	if err := writeRecord(w.buf, e.Marshal()); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush event file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close event file: %w", closeErr)
	}
	return nil
}
