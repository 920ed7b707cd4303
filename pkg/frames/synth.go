package frames

import (
	"math/rand"
	"time"

	"github.com/1F47E/rider-index/pkg/models"
	"github.com/1F47E/rider-index/pkg/pipeline"
)

// SynthOptions shapes generated traffic
type SynthOptions struct {
	Width, Height   int
	Motorcycles     int     // motorcycles per frame
	RidersPerMoto   int     // maximum riders placed on each motorcycle
	Pedestrians     int     // persons not riding anything
	Vehicles        int     // cars, buses and trucks per frame
	UntrackedChance float64 // probability a detection has no track id
	FPS             int
}

// DefaultSynthOptions approximates a busy 1080p intersection
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		Width:           1920,
		Height:          1080,
		Motorcycles:     6,
		RidersPerMoto:   3,
		Pedestrians:     8,
		Vehicles:        10,
		UntrackedChance: 0.05,
		FPS:             30,
	}
}

var vehicleClasses = []struct {
	id   int
	name string
	w, h int
}{
	{2, "car", 180, 120},
	{5, "bus", 320, 220},
	{7, "truck", 280, 200},
	{1, "bicycle", 60, 90},
}

// GenerateFrames builds n frames of synthetic detector output. Track ids are
// stable per object across frames and objects drift a few pixels per frame.
func GenerateFrames(n int, seed int64, opts SynthOptions) []pipeline.Frame {
	r := rand.New(rand.NewSource(seed))
	start := time.Unix(0, 0).UTC()
	frameDur := time.Second / time.Duration(max(opts.FPS, 1))

	type object struct {
		classID   int
		className string
		trackID   int
		x, y      int
		w, h      int
		dx, dy    int
		rideOf    int // index into motos, -1 when not riding
	}

	nextID := 1
	newObject := func(classID int, name string, w, h int) object {
		o := object{
			classID:   classID,
			className: name,
			trackID:   nextID,
			x:         r.Intn(max(opts.Width-w, 1)),
			y:         r.Intn(max(opts.Height-h, 1)),
			w:         w,
			h:         h,
			dx:        r.Intn(7) - 3,
			dy:        r.Intn(7) - 3,
			rideOf:    -1,
		}
		nextID++
		return o
	}

	var motos, others []object
	for i := 0; i < opts.Motorcycles; i++ {
		motos = append(motos, newObject(3, "motorcycle", 90, 140))
	}
	for i := range motos {
		if opts.RidersPerMoto <= 0 {
			break
		}
		numRiders := 1 + r.Intn(opts.RidersPerMoto)
		for k := 0; k < numRiders; k++ {
			rider := newObject(0, "person", 50, 110)
			rider.rideOf = i
			others = append(others, rider)
		}
	}
	for i := 0; i < opts.Pedestrians; i++ {
		others = append(others, newObject(0, "person", 50, 110))
	}
	for i := 0; i < opts.Vehicles; i++ {
		c := vehicleClasses[r.Intn(len(vehicleClasses))]
		others = append(others, newObject(c.id, c.name, c.w, c.h))
	}

	toDetection := func(o object) models.Detection {
		tid := models.SomeTrackID(o.trackID)
		if r.Float64() < opts.UntrackedChance {
			tid = models.NoTrackID()
		}
		return models.Detection{
			ClassID:    o.classID,
			ClassName:  o.className,
			Confidence: 0.5 + r.Float64()*0.5,
			BBox:       models.BoundingBox{X1: o.x, Y1: o.y, X2: o.x + o.w, Y2: o.y + o.h},
			TrackID:    tid,
		}
	}

	frames := make([]pipeline.Frame, n)
	for f := 0; f < n; f++ {
		dets := make([]models.Detection, 0, len(motos)+len(others))
		for i := range motos {
			m := &motos[i]
			m.x = clamp(m.x+m.dx, 0, opts.Width-m.w)
			m.y = clamp(m.y+m.dy, 0, opts.Height-m.h)
			dets = append(dets, toDetection(*m))
		}
		for i := range others {
			o := &others[i]
			if o.rideOf >= 0 {
				// riders sit on the upper half of their motorcycle
				m := motos[o.rideOf]
				o.x = m.x + m.w/2 - o.w/2 + r.Intn(11) - 5
				o.y = m.y - o.h/3 + r.Intn(11) - 5
			} else {
				o.x = clamp(o.x+o.dx, 0, opts.Width-o.w)
				o.y = clamp(o.y+o.dy, 0, opts.Height-o.h)
			}
			dets = append(dets, toDetection(*o))
		}
		r.Shuffle(len(dets), func(i, j int) { dets[i], dets[j] = dets[j], dets[i] })

		frames[f] = pipeline.Frame{
			Index:      f + 1,
			Timestamp:  start.Add(time.Duration(f) * frameDur),
			Detections: dets,
		}
	}
	return frames
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
