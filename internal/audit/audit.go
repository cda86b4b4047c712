// Package audit provides the append-only line sink for message traffic.
// Writes are best-effort: a failing sink must never block or mask the
// primary response path.
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Direction indicates whether a line records an inbound or outbound message.
type Direction string

const (
	// Inbound marks a message received from a user.
	Inbound Direction = "-->"
	// Outbound marks a message sent to a user.
	Outbound Direction = "<--"
)

// Entry is a single audit line.
type Entry struct {
	Timestamp time.Time
	Direction Direction
	Identity  int64
	Username  string
	Text      string
}

// Recorder abstracts the audit sink. Implementations must tolerate
// interleaved writers without corrupting individual lines.
type Recorder interface {
	Record(entry Entry) error
}

// FileRecorder appends audit lines to a single file, creating it on first
// write. A mutex serializes writers so each line lands intact.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

// NewFileRecorder creates a recorder writing to path. The file itself is
// created lazily on the first Record call.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if path == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	return &FileRecorder{path: path}, nil
}

// Record appends one line to the audit file.
func (r *FileRecorder) Record(entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, formatEntry(entry)); err != nil {
		return fmt.Errorf("failed to append audit line: %w", err)
	}
	return nil
}

func formatEntry(entry Entry) string {
	return fmt.Sprintf("%s %d %s %s: %s",
		entry.Direction,
		entry.Identity,
		entry.Username,
		entry.Timestamp.Format(time.RFC3339),
		entry.Text,
	)
}
