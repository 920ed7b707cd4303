package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidDetection is wrapped by every validation failure at the data-model boundary
var ErrInvalidDetection = errors.New("invalid detection")

// ValidationError describes which field of a detection was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidDetection, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDetection
}

// Point is an integer pixel coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceTo returns the Euclidean distance between two points
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
}

// BoundingBox is an axis-aligned rectangle with top-left (X1, Y1) and
// bottom-right (X2, Y2) corners. Corner ordering is not enforced.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Center returns the midpoint of the box using floor division on both axes.
func (b BoundingBox) Center() Point {
	return Point{X: floorDiv(b.X1+b.X2, 2), Y: floorDiv(b.Y1+b.Y2, 2)}
}

// ContainsPoint reports whether p lies inside b, edges included.
// A malformed box (X1 > X2 or Y1 > Y2) contains nothing.
func (b BoundingBox) ContainsPoint(p Point) bool {
	return b.X1 <= p.X && p.X <= b.X2 && b.Y1 <= p.Y && p.Y <= b.Y2
}

// IsValid reports whether the corners are ordered
func (b BoundingBox) IsValid() bool {
	return b.X1 <= b.X2 && b.Y1 <= b.Y2
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// floorDiv divides rounding toward negative infinity
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// TrackID is the optional tracker-assigned identity of a detection.
// The zero value means the tracker could not assign one.
type TrackID struct {
	id int
	ok bool
}

// SomeTrackID returns a present track id
func SomeTrackID(id int) TrackID {
	return TrackID{id: id, ok: true}
}

// NoTrackID returns an absent track id
func NoTrackID() TrackID {
	return TrackID{}
}

// Get returns the id and whether it is present
func (t TrackID) Get() (int, bool) {
	return t.id, t.ok
}

// Valid reports whether a track id is present
func (t TrackID) Valid() bool {
	return t.ok
}

func (t TrackID) String() string {
	if !t.ok {
		return "none"
	}
	return fmt.Sprintf("%d", t.id)
}

func (t TrackID) MarshalJSON() ([]byte, error) {
	if !t.ok {
		return []byte("null"), nil
	}
	return json.Marshal(t.id)
}

func (t *TrackID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = NoTrackID()
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("track_id: %w", err)
	}
	*t = SomeTrackID(id)
	return nil
}

func (t TrackID) GobEncode() ([]byte, error) {
	return t.MarshalJSON()
}

func (t *TrackID) GobDecode(data []byte) error {
	return t.UnmarshalJSON(data)
}

// Detection is one perceived object in one frame. Values are immutable once
// built; consumers only read fields.
type Detection struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
	TrackID    TrackID     `json:"track_id"`
}

// NewDetection validates the fields and builds a Detection
func NewDetection(classID int, className string, confidence float64, bbox BoundingBox, trackID TrackID) (Detection, error) {
	d := Detection{
		ClassID:    classID,
		ClassName:  className,
		Confidence: confidence,
		BBox:       bbox,
		TrackID:    trackID,
	}
	if err := d.Validate(); err != nil {
		return Detection{}, err
	}
	return d, nil
}

// Validate checks the fields a detection must carry to enter the pipeline
func (d Detection) Validate() error {
	if d.ClassID < 0 {
		return &ValidationError{Field: "class_id", Reason: "must not be negative"}
	}
	if strings.TrimSpace(d.ClassName) == "" {
		return &ValidationError{Field: "class_name", Reason: "is required"}
	}
	if math.IsNaN(d.Confidence) || math.IsInf(d.Confidence, 0) {
		return &ValidationError{Field: "confidence", Reason: "must be finite"}
	}
	return nil
}

// Label renders the detection the way log lines reference it, e.g. "car(ID:12)"
func (d Detection) Label() string {
	return fmt.Sprintf("%s(ID:%s)", d.ClassName, d.TrackID)
}

// UnmarshalJSON decodes a detection and applies the same validation as NewDetection.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClassID    int          `json:"class_id"`
		ClassName  *string      `json:"class_name"`
		Confidence float64      `json:"confidence"`
		BBox       *BoundingBox `json:"bbox"`
		TrackID    TrackID      `json:"track_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ClassName == nil {
		return &ValidationError{Field: "class_name", Reason: "is required"}
	}
	if raw.BBox == nil {
		return &ValidationError{Field: "bbox", Reason: "is required"}
	}
	det, err := NewDetection(raw.ClassID, *raw.ClassName, raw.Confidence, *raw.BBox, raw.TrackID)
	if err != nil {
		return err
	}
	*d = det
	return nil
}

// Category is one of the closed set of semantic buckets
type Category int

const (
	Motorcycles Category = iota
	Cars
	HeavyVehicles
	Persons
)

// Categories lists every category in bucket order
var Categories = []Category{Motorcycles, Cars, HeavyVehicles, Persons}

func (c Category) String() string {
	switch c {
	case Motorcycles:
		return "motorcycles"
	case Cars:
		return "cars"
	case HeavyVehicles:
		return "heavy_vehicles"
	case Persons:
		return "persons"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}
