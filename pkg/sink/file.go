package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mediacrawl/pkg/logger"
)

// FileSink appends records as JSON lines, one file per platform and record
// kind under the configured directory.
type FileSink struct {
	dir string
	log logger.Logger

	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileSink creates the directory if needed and returns the sink.
func NewFileSink(dir string, log logger.Logger) (*FileSink, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating sink directory: %w", err)
	}
	return &FileSink{
		dir:   dir,
		log:   log,
		files: make(map[string]*os.File),
	}, nil
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, rec Record) error {
	payload, err := rec.marshal()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(rec.Platform, rec.Kind)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("writing record %s: %w", rec.ItemID, err)
	}
	return nil
}

func (s *FileSink) file(platform, kind string) (*os.File, error) {
	key := platform + "_" + kind
	if f, ok := s.files[key]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, key+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening sink file %s: %w", path, err)
	}
	s.files[key] = f
	return f, nil
}

// Close flushes and closes all open files.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.files, key)
	}
	return firstErr
}
