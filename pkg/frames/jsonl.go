// Package frames reads and writes recordings of per-frame detector output,
// the boundary where the external detector/tracker hands frames to the pipeline.
package frames

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/1F47E/rider-index/pkg/pipeline"
)

const maxLineSize = 16 * 1024 * 1024

// Source is a pipeline.Source backed by an open recording
type Source interface {
	pipeline.Source
	Close() error
}

// JSONLReader decodes one frame per line
type JSONLReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	count   int
}

// NewJSONLReader reads frames from r. If r is an io.Closer, Close closes it.
func NewJSONLReader(r io.Reader) *JSONLReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	jr := &JSONLReader{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		jr.closer = c
	}
	return jr
}

// Next returns the next frame. Frames without a "frame" field are numbered
// by their position in the stream, starting at 1. An explicit 0 is kept.
func (jr *JSONLReader) Next(ctx context.Context) (pipeline.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pipeline.Frame{}, err
		}
		if !jr.scanner.Scan() {
			if err := jr.scanner.Err(); err != nil {
				return pipeline.Frame{}, fmt.Errorf("failed to read line %d: %w", jr.line+1, err)
			}
			return pipeline.Frame{}, io.EOF
		}
		jr.line++

		data := bytes.TrimSpace(jr.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var frame pipeline.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			return pipeline.Frame{}, fmt.Errorf("line %d: %w", jr.line, err)
		}
		var numbered struct {
			Index *int `json:"frame"`
		}
		if err := json.Unmarshal(data, &numbered); err != nil {
			return pipeline.Frame{}, fmt.Errorf("line %d: %w", jr.line, err)
		}
		jr.count++
		if numbered.Index == nil {
			frame.Index = jr.count
		}
		return frame, nil
	}
}

func (jr *JSONLReader) Close() error {
	if jr.closer == nil {
		return nil
	}
	return jr.closer.Close()
}

// WriteJSONL encodes each value on its own line
func WriteJSONL[T any](w io.Writer, values []T) error {
	encoder := json.NewEncoder(w)
	for i, v := range values {
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("failed to encode value %d: %w", i, err)
		}
	}
	return nil
}

type sliceSource struct {
	*pipeline.SliceSource
}

func (sliceSource) Close() error { return nil }

// Open opens a recording by extension: .jsonl/.json (JSON Lines) or .gob.
// The path "-" reads JSON Lines from stdin.
func Open(path string) (Source, error) {
	if path == "-" {
		return NewJSONLReader(io.NopCloser(os.Stdin)), nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		frames, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		return sliceSource{pipeline.NewSliceSource(frames)}, nil
	case ".jsonl", ".json", ".ndjson":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open recording: %w", err)
		}
		return NewJSONLReader(file), nil
	default:
		return nil, fmt.Errorf("unsupported recording format %q", filepath.Ext(path))
	}
}
