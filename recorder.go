package durationz

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithoutFields leaves the "fields" key out of every line.
func WithoutFields() RecorderOption {
	return func(r *Recorder) {
		r.withFields = false
	}
}

// WithoutParents leaves the "parents" key out of every line.
func WithoutParents() RecorderOption {
	return func(r *Recorder) {
		r.withParents = false
	}
}

// Recorder appends active intervals to a writer as newline-delimited JSON.
// Lines are written in the order Record is called, which need not be time
// order. Safe for concurrent use by multiple goroutines.
type Recorder struct {
	out         *bufio.Writer
	enc         *json.Encoder
	closer      io.Closer
	mu          sync.Mutex
	withFields  bool
	withParents bool
	closed      bool
}

// NewRecorder creates a recorder writing to w. Output is buffered; call
// Flush or Close when done.
func NewRecorder(w io.Writer, opts ...RecorderOption) *Recorder {
	out := bufio.NewWriter(w)
	r := &Recorder{
		out:         out,
		enc:         json.NewEncoder(out),
		withFields:  true,
		withParents: true,
	}
	r.enc.SetEscapeHTML(false)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRecorder truncates or creates the file at path and records into it.
func CreateRecorder(path string, opts ...RecorderOption) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure durations directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create durations file: %w", err)
	}
	r := NewRecorder(file, opts...)
	r.closer = file
	return r, nil
}

// Record writes one line. Write errors are returned as is; the recorder
// does not retry, lines already written remain a valid log. After Close
// every call fails with ErrRecorderClosed.
func (r *Recorder) Record(iv ActiveInterval) error {
	line := encodeLine(iv, r.withParents, r.withFields)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("write interval %q: %w", iv.Name, ErrRecorderClosed)
	}
	// Encode terminates every value with a newline.
	if err := r.enc.Encode(&line); err != nil {
		return fmt.Errorf("write interval: %w", err)
	}
	return nil
}

// Flush writes buffered lines to the underlying writer.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.out.Flush(); err != nil {
		return fmt.Errorf("flush durations: %w", err)
	}
	return nil
}

// Close flushes and, for recorders made by CreateRecorder, closes the file.
// Closing twice is harmless.
func (r *Recorder) Close() error {
	flushErr := r.Flush()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.closer == nil {
		return flushErr
	}
	closeErr := r.closer.Close()
	r.closer = nil
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close durations file: %w", closeErr)
	}
	return nil
}
