// Package pipeline runs the per-frame route-then-associate stages over a
// stream of detection frames with a pool of worker goroutines.
package pipeline

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/1F47E/rider-index/pkg/association"
	"github.com/1F47E/rider-index/pkg/diag"
	"github.com/1F47E/rider-index/pkg/models"
	"github.com/1F47E/rider-index/pkg/router"
)

const (
	defaultStatsEvery = 30
)

// Frame is the detector's output for one video frame
type Frame struct {
	Index      int                `json:"frame"`
	Timestamp  time.Time          `json:"ts"`
	Detections []models.Detection `json:"detections"`
}

// Source yields frames in stream order and returns io.EOF when exhausted.
// Next must return once ctx is done.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// SliceSource replays frames held in memory
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource returns a source over frames
func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Result is everything the stages produced for one frame
type Result struct {
	Frame        Frame           `json:"frame"`
	Buckets      router.Buckets  `json:"routing"`
	Associations association.Map `json:"associations"`
	Elapsed      time.Duration   `json:"elapsed_ns"`
}

// Options controls a Processor. Zero values select defaults.
type Options struct {
	Workers    int // defaults to runtime.NumCPU()
	FrameSkip  int // process every FrameSkip-th frame, defaults to 1
	StatsEvery int // log throughput every StatsEvery processed frames, defaults to 30
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.FrameSkip <= 0 {
		o.FrameSkip = 1
	}
	if o.StatsEvery <= 0 {
		o.StatsEvery = defaultStatsEvery
	}
	return o
}

// Stats summarizes a run
type Stats struct {
	FramesRead      int64
	FramesProcessed int64
	Detections      int64
	Riders          int64
	Duration        time.Duration
}

// FPS returns processed frames per second
func (s Stats) FPS() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.FramesProcessed) / s.Duration.Seconds()
}

// Processor wires the router and association engine together
type Processor struct {
	opts       Options
	logger     *zap.SugaredLogger
	routerSink diag.Sink
	assocSink  diag.Sink
}

// NewProcessor creates a processor. A nil logger discards all output.
func NewProcessor(opts Options, logger *zap.SugaredLogger) *Processor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Processor{
		opts:       opts.withDefaults(),
		logger:     logger,
		routerSink: diag.FromZap(logger.Named("router")),
		assocSink:  diag.FromZap(logger.Named("association")),
	}
}

// Options returns the effective options
func (p *Processor) Options() Options {
	return p.opts
}

// ProcessFrame routes and associates a single frame. It is safe to call
// from multiple goroutines.
func (p *Processor) ProcessFrame(f Frame) Result {
	start := time.Now()
	buckets := router.Route(f.Detections, p.routerSink)
	assoc := association.AssociateWithSink(buckets, p.assocSink)
	return Result{
		Frame:        f,
		Buckets:      buckets,
		Associations: assoc,
		Elapsed:      time.Since(start),
	}
}

type job struct {
	seq   int
	frame Frame
}

type sequenced struct {
	seq    int
	result Result
}

// Run reads src until io.EOF, processing frames concurrently and calling
// handle with results in frame order. It stops at the first source or
// handler error, or when ctx is cancelled.
func (p *Processor) Run(ctx context.Context, src Source, handle func(Result) error) (Stats, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stats      Stats
		framesRead atomic.Int64
	)
	start := time.Now()

	jobs := make(chan job, p.opts.Workers)
	results := make(chan sequenced, p.opts.Workers)
	readDone := make(chan error, 1)

	// Reader: applies frame skipping and hands out sequence numbers.
	// It reports exactly once on readDone, nil unless the source failed.
	go func() {
		defer close(jobs)
		var readErr error
		defer func() { readDone <- readErr }()
		seq := 0
		for {
			if ctx.Err() != nil {
				return
			}
			frame, err := src.Next(ctx)
			if err != nil {
				// Errors caused by our own cancellation are reported through ctx
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					readErr = err
				}
				return
			}
			n := framesRead.Add(1)
			if n%int64(p.opts.FrameSkip) != 0 {
				continue
			}
			select {
			case jobs <- job{seq: seq, frame: frame}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r := p.ProcessFrame(j.frame)
				select {
				case results <- sequenced{seq: j.seq, result: r}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Reorder so the handler sees frames in stream order
	pending := make(map[int]Result)
	next := 0
	var handleErr error
	for sr := range results {
		if handleErr != nil {
			continue
		}
		pending[sr.seq] = sr.result
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			stats.FramesProcessed++
			stats.Detections += int64(len(r.Frame.Detections))
			stats.Riders += int64(r.Associations.RiderCount())

			if stats.FramesProcessed%int64(p.opts.StatsEvery) == 0 {
				elapsed := time.Since(start)
				p.logger.Debugf("Processing... frame %d, tracked objects %d, pipeline FPS %.1f",
					r.Frame.Index, len(r.Frame.Detections), float64(stats.FramesProcessed)/elapsed.Seconds())
			}

			if err := handle(r); err != nil {
				handleErr = err
				cancel()
				break
			}
		}
	}

	// Workers may leave on cancellation before jobs is closed; the reader
	// must be gone before Run returns.
	cancel()
	readErr := <-readDone

	stats.FramesRead = framesRead.Load()
	stats.Duration = time.Since(start)

	if handleErr != nil {
		return stats, handleErr
	}
	if readErr != nil {
		return stats, readErr
	}
	if err := parent.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// LogRouting writes the structured routing output of a result at info level
func LogRouting(logger *zap.SugaredLogger, r Result) {
	logger.Infof("--- frame %d routing ---", r.Frame.Index)
	for _, c := range models.Categories {
		dets := r.Buckets.Get(c)
		labels := make([]string, 0, len(dets))
		for _, d := range dets {
			labels = append(labels, d.Label())
		}
		logger.Infof("%s: [%s]", c, strings.Join(labels, ", "))
	}
	for _, id := range r.Associations.TrackIDs() {
		entry := r.Associations[id]
		logger.Infof("motorcycle %d riders: %d", id, len(entry.Riders))
	}
}
