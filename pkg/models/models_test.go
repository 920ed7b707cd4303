package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxCenter(t *testing.T) {
	testCases := []struct {
		name     string
		box      BoundingBox
		expected Point
	}{
		{"Even sums", BoundingBox{100, 100, 200, 200}, Point{150, 150}},
		{"Odd sums floor", BoundingBox{0, 0, 5, 7}, Point{2, 3}},
		{"Negative odd sums floor", BoundingBox{-5, -3, 0, 0}, Point{-3, -2}},
		{"Degenerate box", BoundingBox{10, 10, 10, 10}, Point{10, 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.box.Center())
		})
	}
}

func TestBoundingBoxContainsPoint(t *testing.T) {
	box := BoundingBox{100, 100, 200, 200}

	assert.True(t, box.ContainsPoint(Point{150, 150}))
	assert.True(t, box.ContainsPoint(Point{100, 100}), "top-left corner is inside")
	assert.True(t, box.ContainsPoint(Point{200, 200}), "bottom-right corner is inside")
	assert.True(t, box.ContainsPoint(Point{100, 200}))
	assert.False(t, box.ContainsPoint(Point{99, 150}))
	assert.False(t, box.ContainsPoint(Point{150, 201}))

	malformed := BoundingBox{200, 200, 100, 100}
	assert.False(t, malformed.IsValid())
	assert.False(t, malformed.ContainsPoint(Point{150, 150}))
}

func TestPointDistance(t *testing.T) {
	assert.InDelta(t, 40.0, Point{190, 150}.DistanceTo(Point{150, 150}), 1e-9)
	assert.InDelta(t, 5.0, Point{0, 0}.DistanceTo(Point{3, 4}), 1e-9)
	assert.Equal(t, 0.0, Point{7, 7}.DistanceTo(Point{7, 7}))
}

func TestTrackID(t *testing.T) {
	id, ok := SomeTrackID(42).Get()
	assert.True(t, ok)
	assert.Equal(t, 42, id)

	_, ok = NoTrackID().Get()
	assert.False(t, ok)

	var zero TrackID
	assert.False(t, zero.Valid(), "zero value means absent")
	assert.Equal(t, "none", zero.String())
}

func TestTrackIDJSON(t *testing.T) {
	data, err := json.Marshal(SomeTrackID(7))
	require.NoError(t, err)
	assert.Equal(t, "7", string(data))

	data, err = json.Marshal(NoTrackID())
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var tid TrackID
	require.NoError(t, json.Unmarshal([]byte("12"), &tid))
	assert.Equal(t, SomeTrackID(12), tid)

	require.NoError(t, json.Unmarshal([]byte("null"), &tid))
	assert.False(t, tid.Valid())

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &tid))
}

func TestNewDetection(t *testing.T) {
	box := BoundingBox{10, 10, 100, 100}

	det, err := NewDetection(3, "motorcycle", 0.9, box, SomeTrackID(1))
	require.NoError(t, err)
	assert.Equal(t, "motorcycle", det.ClassName)
	assert.Equal(t, "motorcycle(ID:1)", det.Label())

	testCases := []struct {
		name       string
		classID    int
		className  string
		confidence float64
		field      string
	}{
		{"Empty class name", 0, "", 0.5, "class_name"},
		{"Blank class name", 0, "   ", 0.5, "class_name"},
		{"Negative class id", -1, "car", 0.5, "class_id"},
		{"NaN confidence", 2, "car", math.NaN(), "confidence"},
		{"Infinite confidence", 2, "car", math.Inf(1), "confidence"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDetection(tc.classID, tc.className, tc.confidence, box, NoTrackID())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDetection))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestDetectionConfidenceUnconstrained(t *testing.T) {
	_, err := NewDetection(2, "car", 1.7, BoundingBox{}, NoTrackID())
	assert.NoError(t, err)
	_, err = NewDetection(2, "car", -0.2, BoundingBox{}, NoTrackID())
	assert.NoError(t, err)
}

func TestDetectionUnmarshalJSON(t *testing.T) {
	var det Detection
	err := json.Unmarshal([]byte(`{"class_id":3,"class_name":"Motorcycle","confidence":0.8,"bbox":{"x1":1,"y1":2,"x2":3,"y2":4},"track_id":9}`), &det)
	require.NoError(t, err)
	assert.Equal(t, 3, det.ClassID)
	assert.Equal(t, "Motorcycle", det.ClassName)
	assert.Equal(t, BoundingBox{1, 2, 3, 4}, det.BBox)
	assert.Equal(t, SomeTrackID(9), det.TrackID)

	err = json.Unmarshal([]byte(`{"class_id":0,"class_name":"person","confidence":0.5,"bbox":{"x1":0,"y1":0,"x2":1,"y2":1}}`), &det)
	require.NoError(t, err)
	assert.False(t, det.TrackID.Valid())

	err = json.Unmarshal([]byte(`{"class_id":0,"confidence":0.5,"bbox":{"x1":0,"y1":0,"x2":1,"y2":1}}`), &det)
	assert.ErrorIs(t, err, ErrInvalidDetection)

	err = json.Unmarshal([]byte(`{"class_id":0,"class_name":"person","confidence":0.5}`), &det)
	assert.ErrorIs(t, err, ErrInvalidDetection)
}

func TestCategoryString(t *testing.T) {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, c.String())
	}
	assert.Equal(t, []string{"motorcycles", "cars", "heavy_vehicles", "persons"}, names)
}
