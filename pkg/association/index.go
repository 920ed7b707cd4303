package association

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/1F47E/rider-index/pkg/models"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// Box edges are padded so zero-width boxes still have a positive extent and
	// edge points intersect. Candidates are re-checked exactly after the search.
	boxPadding = 0.5
	queryTol   = 0.25
)

// spatialMotorcycle wraps a motorcycle to implement rtreego.Spatial
type spatialMotorcycle struct {
	det     models.Detection
	trackID int
	order   int // position in the motorcycles bucket
	rect    rtreego.Rect
}

func (sm *spatialMotorcycle) Bounds() rtreego.Rect {
	return sm.rect
}

// frameIndex is an R-tree over one frame's keyed motorcycle boxes. It is built
// per call and discarded, so nothing carries over between frames.
type frameIndex struct {
	tree  *rtreego.Rtree
	count int
}

// newFrameIndex indexes every motorcycle that has a track id and a well-formed box.
// Malformed boxes can never contain a point, so they are left out.
func newFrameIndex(motorcycles []models.Detection) *frameIndex {
	idx := &frameIndex{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}

	for i, moto := range motorcycles {
		id, ok := moto.TrackID.Get()
		if !ok || !moto.BBox.IsValid() {
			continue
		}
		b := moto.BBox
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{float64(b.X1) - boxPadding, float64(b.Y1) - boxPadding},
			rtreego.Point{float64(b.X2) + boxPadding, float64(b.Y2) + boxPadding},
		)
		if err != nil {
			continue
		}
		idx.tree.Insert(&spatialMotorcycle{det: moto, trackID: id, order: i, rect: rect})
		idx.count++
	}

	return idx
}

// containing returns the motorcycles whose box contains p, edges included,
// ordered as they appeared in the motorcycles bucket.
func (idx *frameIndex) containing(p models.Point) []*spatialMotorcycle {
	if idx.count == 0 {
		return nil
	}

	query := rtreego.Point{float64(p.X), float64(p.Y)}.ToRect(queryTol)
	results := idx.tree.SearchIntersect(query)

	matches := make([]*spatialMotorcycle, 0, len(results))
	for _, result := range results {
		sm, ok := result.(*spatialMotorcycle)
		if !ok {
			continue
		}
		// Strict boundary check
		if sm.det.BBox.ContainsPoint(p) {
			matches = append(matches, sm)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].order < matches[j].order
	})
	return matches
}
