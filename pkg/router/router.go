// Package router partitions a frame's detections into the fixed set of
// semantic vehicle categories.
package router

import (
	"encoding/json"
	"strings"

	"github.com/1F47E/rider-index/pkg/diag"
	"github.com/1F47E/rider-index/pkg/models"
)

// Buckets holds a frame's detections grouped by category. All four slices
// are always non-nil, so callers never need to check for a missing bucket.
type Buckets struct {
	Motorcycles   []models.Detection `json:"motorcycles"`
	Cars          []models.Detection `json:"cars"`
	HeavyVehicles []models.Detection `json:"heavy_vehicles"`
	Persons       []models.Detection `json:"persons"`
}

// NewBuckets returns four empty buckets
func NewBuckets() Buckets {
	return Buckets{
		Motorcycles:   []models.Detection{},
		Cars:          []models.Detection{},
		HeavyVehicles: []models.Detection{},
		Persons:       []models.Detection{},
	}
}

// Get returns the bucket for a category
func (b Buckets) Get(c models.Category) []models.Detection {
	switch c {
	case models.Motorcycles:
		return b.Motorcycles
	case models.Cars:
		return b.Cars
	case models.HeavyVehicles:
		return b.HeavyVehicles
	case models.Persons:
		return b.Persons
	}
	return nil
}

// Len returns the number of routed detections across all buckets
func (b Buckets) Len() int {
	return len(b.Motorcycles) + len(b.Cars) + len(b.HeavyVehicles) + len(b.Persons)
}

// MarshalJSON always emits all four keys, empty buckets as [].
func (b Buckets) MarshalJSON() ([]byte, error) {
	out := make(map[string][]models.Detection, len(models.Categories))
	for _, c := range models.Categories {
		dets := b.Get(c)
		if dets == nil {
			dets = []models.Detection{}
		}
		out[c.String()] = dets
	}
	return json.Marshal(out)
}

// Classify maps a class name to its category, matching case-insensitively.
// ok is false for classes that are not routed.
func Classify(className string) (c models.Category, ok bool) {
	switch strings.ToLower(className) {
	case "motorcycle":
		return models.Motorcycles, true
	case "car":
		return models.Cars, true
	case "bus", "truck":
		return models.HeavyVehicles, true
	case "person":
		return models.Persons, true
	}
	return 0, false
}

// Route partitions detections into buckets, keeping input order within each
// bucket. Unrecognized classes are dropped and reported to sink, which may be nil.
func Route(detections []models.Detection, sink diag.Sink) Buckets {
	sink = diag.OrNop(sink)
	buckets := NewBuckets()

	for _, det := range detections {
		category, ok := Classify(det.ClassName)
		if !ok {
			sink.Debugf("class '%s' not routed, dropping", strings.ToLower(det.ClassName))
			continue
		}
		switch category {
		case models.Motorcycles:
			buckets.Motorcycles = append(buckets.Motorcycles, det)
		case models.Cars:
			buckets.Cars = append(buckets.Cars, det)
		case models.HeavyVehicles:
			buckets.HeavyVehicles = append(buckets.HeavyVehicles, det)
		case models.Persons:
			buckets.Persons = append(buckets.Persons, det)
		}
	}

	return buckets
}
