package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
model:
  weights: yolov8n.pt
  confidence_threshold: 0.35
  target_classes: [0, 2, 3, 5, 7]
io:
  input_source: data/input/traffic.jsonl
  save_results: true
  frame_skip: 2
  show_display: false
pipeline:
  workers: 4
logging:
  level: debug
store:
  driver: sqlite
  dsn: file:results.db
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "yolov8n.pt", cfg.Model.Weights)
	assert.Equal(t, 0.35, cfg.Model.ConfidenceThreshold)
	assert.Equal(t, []int{0, 2, 3, 5, 7}, cfg.Model.TargetClasses)
	assert.Equal(t, "data/input/traffic.jsonl", cfg.IO.InputSource)
	assert.True(t, cfg.IO.SaveResults)
	assert.Equal(t, 2, cfg.IO.FrameSkip)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sqlite", cfg.Store.Driver)

	// defaults
	assert.Equal(t, 0.45, cfg.Model.IOUThreshold)
	assert.Equal(t, "bytetrack.yaml", cfg.Model.Tracker)
	assert.Equal(t, "data/output/", cfg.IO.OutputDir)
	assert.Equal(t, 30, cfg.Pipeline.StatsEvery)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.IO.FrameSkip)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Greater(t, cfg.Pipeline.Workers, 0)
}

func TestSQLiteDSNDefaultsToOutputDir(t *testing.T) {
	cfg, err := Parse([]byte("io:\n  output_dir: out/run1\nstore:\n  driver: sqlite\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out/run1", DefaultSQLiteFile), cfg.Store.DSN)

	cfg, err = Parse([]byte("store:\n  driver: sqlite\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data/output/", DefaultSQLiteFile), cfg.Store.DSN)

	// An explicit dsn wins
	cfg, err = Parse([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "file:results.db", cfg.Store.DSN)

	// Postgres has no file to default to
	_, err = Parse([]byte("io:\n  output_dir: out\nstore:\n  driver: postgres\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Flag overrides applied after loading
	cfg = Default()
	cfg.IO.OutputDir = "elsewhere"
	cfg.Store.Driver = "sqlite"
	cfg.ApplyDefaults()
	assert.Equal(t, filepath.Join("elsewhere", DefaultSQLiteFile), cfg.Store.DSN)
	assert.NoError(t, cfg.Validate())
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"Negative frame skip", "io:\n  frame_skip: -1\n"},
		{"Confidence above one", "model:\n  confidence_threshold: 1.5\n"},
		{"IOU negative", "model:\n  iou_threshold: -0.1\n"},
		{"Bad log level", "logging:\n  level: loud\n"},
		{"Unknown store driver", "store:\n  driver: mongo\n  dsn: x\n"},
		{"Store without dsn", "store:\n  driver: postgres\n"},
		{"Negative workers", "pipeline:\n  workers: -2\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Parse([]byte("model: [unclosed"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yolov8n.pt", cfg.Model.Weights)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
