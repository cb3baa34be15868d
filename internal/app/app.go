// Package app ties a frame source, a marker detector and the sighting log
// together.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/gokoki/internal/capture"
	"github.com/ayusman/gokoki/internal/detector"
	"github.com/ayusman/gokoki/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no markers are in view.
	IdleFPS = 5
	// ActiveFPS is the frame rate while markers are being seen.
	ActiveFPS = 15
	// IdleTimeout is how long after the last sighting the pipeline drops back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// ErrAlreadyRunning is returned by Start when the pipeline is running.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Config holds configuration options for the application.
type Config struct {
	// Store records every frame with markers. Nil disables recording.
	Store *store.Store
	// Source labels stored detections, e.g. "camera:0".
	Source string
	// MaxFrames stops the pipeline after that many frames. Zero runs until stopped.
	MaxFrames int
	// RecordEmpty also stores frames in which no marker was found.
	RecordEmpty bool
}

// App owns a camera and a detector and runs a Pipeline over them.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	pipeline *Pipeline
	log      logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New creates an App. The camera and detector are closed by Stop.
func New(config Config, camera capture.Camera, det detector.Detector) *App {
	a := &App{
		config:   config,
		camera:   camera,
		detector: det,
		log:      logrus.StandardLogger(),
	}
	a.pipeline = NewPipeline(camera, det, config)
	return a
}

// Pipeline returns the pipeline driven by the app.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// Start opens the camera and runs the pipeline in the background.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return ErrAlreadyRunning
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	a.err = nil

	go func(done chan struct{}) {
		defer close(done)
		err := a.pipeline.Run(ctx)
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
	}(a.done)

	a.log.WithFields(logrus.Fields{
		"function": "Start",
		"source":   a.config.Source,
	}).Info("Detection pipeline started")
	return nil
}

// Wait blocks until the pipeline stops and returns its error.
func (a *App) Wait() error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	a.mu.Lock()
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()

	logger := a.log.WithField("function", "Stop")
	var errs []error
	if err := a.camera.Close(); err != nil {
		logger.WithError(err).Warn("Error closing camera")
		errs = append(errs, err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			logger.WithError(err).Warn("Error closing detector")
			errs = append(errs, err)
		}
	}

	logger.WithField("frames", a.pipeline.Stats().Frames).Info("Detection pipeline stopped")
	return errors.Join(errs...)
}
