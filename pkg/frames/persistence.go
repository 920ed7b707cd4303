package frames

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/1F47E/rider-index/pkg/pipeline"
)

// RecordingData is the serializable form of a recording
type RecordingData struct {
	Frames []pipeline.Frame
	Count  int64
}

// SaveToFile saves frames to a binary file
func SaveToFile(filename string, frames []pipeline.Frame) error {
	data := RecordingData{
		Frames: frames,
		Count:  int64(len(frames)),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return nil
}

// LoadFromFile loads frames from a binary file
func LoadFromFile(filename string) ([]pipeline.Frame, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data RecordingData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	if int64(len(data.Frames)) != data.Count {
		return nil, fmt.Errorf("recording truncated: %d of %d frames", len(data.Frames), data.Count)
	}

	// Reject anything the detector boundary would have refused
	for _, f := range data.Frames {
		for i, d := range f.Detections {
			if err := d.Validate(); err != nil {
				return nil, fmt.Errorf("frame %d detection %d: %w", f.Index, i, err)
			}
		}
	}

	return data.Frames, nil
}
