// Package association assigns person detections to the motorcycle they are
// riding, using center-point containment with a nearest-center tie-break.
//
// Every call builds its result from nothing; no state survives between frames.
package association

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/1F47E/rider-index/pkg/diag"
	"github.com/1F47E/rider-index/pkg/models"
	"github.com/1F47E/rider-index/pkg/router"
)

// Entry is one tracked motorcycle and the riders assigned to it in a frame
type Entry struct {
	Motorcycle models.Detection   `json:"motorcycle"`
	Riders     []models.Detection `json:"riders"`
}

// Map is keyed by motorcycle track id. Motorcycles without a track id never
// appear.
type Map map[int]*Entry

// Get returns the entry for a track id
func (m Map) Get(trackID int) (*Entry, bool) {
	e, ok := m[trackID]
	return e, ok
}

// TrackIDs returns the keys in ascending order
func (m Map) TrackIDs() []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RiderCount returns the number of assigned riders across all motorcycles
func (m Map) RiderCount() int {
	n := 0
	for _, e := range m {
		n += len(e.Riders)
	}
	return n
}

// MarshalJSON emits entries keyed by the decimal track id
func (m Map) MarshalJSON() ([]byte, error) {
	out := make(map[string]*Entry, len(m))
	for id, e := range m {
		out[strconv.Itoa(id)] = e
	}
	return json.Marshal(out)
}

// Associate matches the persons bucket against the motorcycles bucket.
// Other buckets are ignored.
func Associate(buckets router.Buckets) Map {
	return AssociateWithSink(buckets, nil)
}

// AssociateWithSink is Associate with diagnostics reported to sink, which may be nil.
func AssociateWithSink(buckets router.Buckets, sink diag.Sink) Map {
	sink = diag.OrNop(sink)
	motorcycles := buckets.Motorcycles
	persons := buckets.Persons

	associations := make(Map, len(motorcycles))
	for _, moto := range motorcycles {
		id, ok := moto.TrackID.Get()
		if !ok {
			sink.Debugf("motorcycle %s has no track id, skipping", moto.BBox)
			continue
		}
		associations[id] = &Entry{Motorcycle: moto, Riders: []models.Detection{}}
	}

	if len(associations) == 0 || len(persons) == 0 {
		return associations
	}

	idx := newFrameIndex(motorcycles)
	for _, person := range persons {
		center := person.BBox.Center()

		candidates := idx.containing(center)
		if len(candidates) == 0 {
			sink.Debugf("person %s center (%d,%d) outside every motorcycle", person.Label(), center.X, center.Y)
			continue
		}

		closest := nearest(center, candidates)
		associations[closest.trackID].Riders = append(associations[closest.trackID].Riders, person)
		if len(candidates) > 1 {
			sink.Debugf("person %s in %d overlapping motorcycles, assigned to %d", person.Label(), len(candidates), closest.trackID)
		}
	}

	return associations
}

// nearest picks the candidate whose box center is closest to p. Candidates
// must be in bucket order: on an exact tie the first one wins.
func nearest(p models.Point, candidates []*spatialMotorcycle) *spatialMotorcycle {
	var closest *spatialMotorcycle
	minDistance := math.Inf(1)
	for _, c := range candidates {
		dist := p.DistanceTo(c.det.BBox.Center())
		if dist < minDistance {
			minDistance = dist
			closest = c
		}
	}
	return closest
}
