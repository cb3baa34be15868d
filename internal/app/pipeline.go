package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/gokoki/internal/capture"
	"github.com/ayusman/gokoki/internal/detector"
	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/store"
)

// FrameSource supplies frames. capture.Camera implements it.
type FrameSource interface {
	ReadFrame() (*gocv.Mat, error)
}

// RateSetter is implemented by sources whose frame rate can be changed.
type RateSetter interface {
	SetFPS(fps int)
}

// Result is the outcome of processing one frame.
type Result struct {
	// DetectionID is set when the frame was recorded.
	DetectionID string
	Width       int
	Height      int
	Markers     []koki.Marker
}

// Stats counts what the pipeline has processed.
type Stats struct {
	Frames  int
	Markers int
	Errors  int
}

// Pipeline reads frames, finds markers and records them.
type Pipeline struct {
	source   FrameSource
	detector detector.Detector
	config   Config
	log      logrus.FieldLogger

	mu       sync.Mutex
	stats    Stats
	onResult []func(Result)
	now      func() time.Time
}

// NewPipeline creates a pipeline over source and det.
func NewPipeline(source FrameSource, det detector.Detector, config Config) *Pipeline {
	return &Pipeline{
		source:   source,
		detector: det,
		config:   config,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
}

// OnResult registers a callback invoked after every processed frame.
func (p *Pipeline) OnResult(fn func(Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = append(p.onResult, fn)
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// RunOnce reads a single frame and processes it.
func (p *Pipeline) RunOnce() (Result, error) {
	frame, err := p.source.ReadFrame()
	if err != nil {
		return Result{}, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	return p.Process(frame)
}

// Process finds the markers in frame, nearest first, and records them
// when a store is configured.
func (p *Pipeline) Process(frame *gocv.Mat) (Result, error) {
	res := Result{Width: frame.Cols(), Height: frame.Rows()}

	markers, err := p.detector.Detect(frame)
	if err != nil {
		p.count(0, true)
		return res, fmt.Errorf("detect: %w", err)
	}
	detector.SortByDistance(markers)
	res.Markers = markers

	if p.config.Store != nil && (len(markers) > 0 || p.config.RecordEmpty) {
		d := &store.Detection{
			Source:  p.config.Source,
			Width:   res.Width,
			Height:  res.Height,
			Markers: markers,
		}
		if err := p.config.Store.Detections().Create(d); err != nil {
			p.count(len(markers), true)
			return res, fmt.Errorf("record detection: %w", err)
		}
		res.DetectionID = d.ID
	}

	p.count(len(markers), false)

	p.mu.Lock()
	callbacks := p.onResult
	p.mu.Unlock()
	for _, fn := range callbacks {
		fn(res)
	}

	return res, nil
}

func (p *Pipeline) count(markers int, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Frames++
	p.stats.Markers += markers
	if failed {
		p.stats.Errors++
	}
}

// Run processes frames until ctx is done, MaxFrames frames have been
// processed, or the source runs out of frames.
//
// The frame rate starts at IdleFPS, switches to ActiveFPS when a marker is
// seen and drops back after IdleTimeout without sightings. Per-frame errors
// are logged and do not stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := p.log.WithFields(logrus.Fields{
		"function": "Run",
		"source":   p.config.Source,
	})

	active := false
	lastSeen := p.now()
	processed := 0

	setRate := func(fps int) {
		if rs, ok := p.source.(RateSetter); ok {
			rs.SetFPS(fps)
		}
	}

	ticker := time.NewTicker(time.Second / IdleFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		res, err := p.RunOnce()
		processed++
		switch {
		case errors.Is(err, capture.ErrNoMoreFrames):
			logger.Info("Frame source exhausted")
			return nil
		case err != nil:
			logger.WithError(err).Warn("Frame failed")
		case len(res.Markers) > 0:
			lastSeen = p.now()
			if !active {
				active = true
				setRate(ActiveFPS)
				ticker.Reset(time.Second / ActiveFPS)
				logger.Debug("Switched to active mode")
			}
			logger.WithFields(logrus.Fields{
				"markers": len(res.Markers),
				"nearest": res.Markers[0].Code,
			}).Debug("Markers found")
		case active && p.now().Sub(lastSeen) > IdleTimeout:
			active = false
			setRate(IdleFPS)
			ticker.Reset(time.Second / IdleFPS)
			logger.Debug("Switched to idle mode")
		}

		if p.config.MaxFrames > 0 && processed >= p.config.MaxFrames {
			return nil
		}
	}
}
