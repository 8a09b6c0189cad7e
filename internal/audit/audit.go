package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// logFilePermissions restricts the audit log to the service account.
const logFilePermissions = 0o600

// Record describes one audited notification attempt for one alarm event.
type Record struct {
	// Success reports whether the attempt succeeded.
	Success bool `json:"success"`
	// Action names the audited operation, e.g. "Send SMS".
	Action string `json:"action"`
	// Actor is the notified user.
	Actor string `json:"actor"`
	// Target is the alarm source extended with the event identifier.
	Target string `json:"target"`
	// Timestamp is when the attempt completed.
	Timestamp time.Time `json:"timestamp"`
}

// Sink accepts audit records.
type Sink interface {
	Record(ctx context.Context, record Record)
}

// FileSink appends audit records as JSON lines to a file on disk.
type FileSink struct {
	// path is the filesystem location of the audit log.
	path string
	// mu serializes appends so concurrent sends never interleave lines.
	mu sync.Mutex
}

// NewFileSink creates a sink appending to the provided path.
func NewFileSink(path string) *FileSink {
	return &FileSink{
		path: filepath.Clean(path),
	}
}

// Record appends one audit record. Failures are logged and swallowed.
func (s *FileSink) Record(ctx context.Context, record Record) {
	line, err := json.Marshal(record)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to encode audit record", "error", err)

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to open audit log", "path", s.path, "error", err)

		return
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Unable to close audit log", "path", s.path, "error", closeErr)
		}
	}()

	if _, err = f.Write(append(line, '\n')); err != nil {
		logger.ErrorKV(ctx, "Unable to append audit record", "path", s.path, "error", err)
	}
}

// NopSink discards every record. Used when no audit log is configured.
type NopSink struct{}

// Record discards the record.
func (NopSink) Record(context.Context, Record) {}
