package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1F47E/rider-index/pkg/frames"
)

func main() {
	var (
		numFrames   = flag.Int("n", 900, "Number of frames to generate")
		outputFile  = flag.String("o", "data/input/synthetic.jsonl", "Output file path (.jsonl or .gob)")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		motorcycles = flag.Int("motorcycles", 6, "Motorcycles per frame")
		riders      = flag.Int("riders", 3, "Maximum riders per motorcycle")
		pedestrians = flag.Int("pedestrians", 8, "Pedestrians per frame")
		vehicles    = flag.Int("vehicles", 10, "Cars, buses, trucks and bicycles per frame")
		untracked   = flag.Float64("untracked", 0.05, "Probability a detection has no track id")
		fps         = flag.Int("fps", 30, "Frame rate used for timestamps")
	)
	flag.Parse()

	// Ensure output directory exists
	if err := os.MkdirAll(filepath.Dir(*outputFile), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	opts := frames.DefaultSynthOptions()
	opts.Motorcycles = *motorcycles
	opts.RidersPerMoto = *riders
	opts.Pedestrians = *pedestrians
	opts.Vehicles = *vehicles
	opts.UntrackedChance = *untracked
	opts.FPS = *fps

	log.Printf("Generating %d frames (seed %d)...\n", *numFrames, *seed)
	startTime := time.Now()
	recording := frames.GenerateFrames(*numFrames, *seed, opts)
	log.Printf("Generated in %v\n", time.Since(startTime))

	log.Printf("Saving recording to %s...\n", *outputFile)
	startTime = time.Now()

	switch strings.ToLower(filepath.Ext(*outputFile)) {
	case ".gob":
		if err := frames.SaveToFile(*outputFile, recording); err != nil {
			log.Fatalf("Failed to save recording: %v", err)
		}
	case ".jsonl", ".json", ".ndjson":
		file, err := os.Create(*outputFile)
		if err != nil {
			log.Fatalf("Failed to create file: %v", err)
		}
		if err := frames.WriteJSONL(file, recording); err != nil {
			file.Close()
			log.Fatalf("Failed to write recording: %v", err)
		}
		if err := file.Close(); err != nil {
			log.Fatalf("Failed to close file: %v", err)
		}
	default:
		log.Fatalf("Unsupported output format %q", filepath.Ext(*outputFile))
	}

	log.Printf("Recording saved in %v\n", time.Since(startTime))

	// Print statistics
	fileInfo, err := os.Stat(*outputFile)
	if err == nil {
		log.Printf("Recording file size: %.2f MB\n", float64(fileInfo.Size())/(1024*1024))
	}
	total := 0
	for _, f := range recording {
		total += len(f.Detections)
	}
	log.Printf("Total detections: %d\n", total)
}
