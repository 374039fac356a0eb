package ingest

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// FileSink appends telemetry rows to a JSONL file. The output can be fed
// back through ReplayLog.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewFileSink creates or truncates path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *FileSink) WriteTelemetry(_ context.Context, row TelemetryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(row)
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}
