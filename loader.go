package durationz

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ParseError reports the first line of a log that could not be read.
type ParseError struct {
	Err    error
	Source string
	Line   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: invalid interval: %v", e.Source, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads an ndjson log into a trace. One malformed line fails the whole
// load and no trace is returned. Blank lines are skipped.
func Load(r io.Reader) (*Trace, error) {
	intervals, err := readIntervals(r, "<input>", nil)
	if err != nil {
		return nil, err
	}
	return NewTrace(intervals), nil
}

// LoadFiles reads the concatenation of the logs at paths into one trace.
func LoadFiles(paths ...string) (*Trace, error) {
	var intervals []ActiveInterval
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		intervals, err = readIntervals(file, path, intervals)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
	}
	return NewTrace(intervals), nil
}

func readIntervals(r io.Reader, source string, into []ActiveInterval) ([]ActiveInterval, error) {
	reader := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("read %s: %w", source, readErr)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			iv, err := parseLine(trimmed)
			if err != nil {
				return nil, &ParseError{Source: source, Line: lineNo, Err: err}
			}
			into = append(into, iv)
		}
		if readErr != nil {
			return into, nil
		}
	}
}

func parseLine(line []byte) (ActiveInterval, error) {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return ActiveInterval{}, err
	}
	return raw.interval()
}
