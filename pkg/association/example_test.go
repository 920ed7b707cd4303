package association_test

import (
	"fmt"

	"github.com/1F47E/rider-index/pkg/association"
	"github.com/1F47E/rider-index/pkg/models"
	"github.com/1F47E/rider-index/pkg/router"
)

func ExampleAssociate() {
	detections := []models.Detection{
		{ClassName: "motorcycle", BBox: models.BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 200}, TrackID: models.SomeTrackID(10)},
		{ClassName: "motorcycle", BBox: models.BoundingBox{X1: 150, Y1: 100, X2: 250, Y2: 200}, TrackID: models.SomeTrackID(20)},
		{ClassName: "person", BBox: models.BoundingBox{X1: 180, Y1: 130, X2: 200, Y2: 170}, TrackID: models.SomeTrackID(1)},
		{ClassName: "person", BBox: models.BoundingBox{X1: 290, Y1: 290, X2: 310, Y2: 310}, TrackID: models.SomeTrackID(2)},
		{ClassName: "car", BBox: models.BoundingBox{X1: 400, Y1: 400, X2: 600, Y2: 500}, TrackID: models.SomeTrackID(3)},
	}

	result := association.Associate(router.Route(detections, nil))
	for _, id := range result.TrackIDs() {
		entry := result[id]
		fmt.Printf("motorcycle %d: %d rider(s)\n", id, len(entry.Riders))
		for _, rider := range entry.Riders {
			fmt.Printf("  %s\n", rider.Label())
		}
	}
	// Output:
	// motorcycle 10: 0 rider(s)
	// motorcycle 20: 1 rider(s)
	//   person(ID:1)
}
