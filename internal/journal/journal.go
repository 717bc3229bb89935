// Package journal appends lifecycle events to a JSON-lines file for auditing.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/0xjunha/apt-reward-script/internal/event"
)

// Entry is the on-disk form of one event.
type Entry struct {
	RunID     string     `json:"run_id"`
	Kind      event.Kind `json:"kind"`
	Index     int        `json:"index"`
	Recipient string     `json:"recipient,omitempty"`
	Hash      string     `json:"hash,omitempty"`
	Message   string     `json:"message"`
	Error     string     `json:"error,omitempty"`
	At        time.Time  `json:"at"`
}

// JSONLRecorder appends events as JSON lines.
type JSONLRecorder struct {
	mu    sync.Mutex
	runID string
	file  *os.File
	enc   *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path, runID string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		runID: runID,
		file:  file,
		enc:   json.NewEncoder(file),
	}, nil
}

// Record writes a single event to the underlying JSONL file.
func (r *JSONLRecorder) Record(e event.Event) {
	entry := Entry{
		RunID:   r.runID,
		Kind:    e.Kind,
		Index:   e.Index,
		Hash:    e.Hash,
		Message: e.Message,
		At:      e.At,
	}
	if e.Kind != event.Finished {
		entry.Recipient = e.Recipient.String()
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	_ = r.enc.Encode(entry)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
