package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/gokoki/internal/capture"
	"github.com/ayusman/gokoki/internal/detector"
	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func openCamera(t *testing.T, frames []*gocv.Mat, loop bool) *capture.MockCamera {
	t.Helper()
	cam := capture.NewMockCamera(frames, loop)
	require.NoError(t, cam.Open())
	return cam
}

func TestPipeline_RunOnce_RecordsMarkers(t *testing.T) {
	s := newTestStore(t)
	det := detector.NewMockDetector()
	det.SetMarkers([]koki.Marker{
		detector.SampleMarker(5, 2, 100, 100),
		detector.SampleMarker(6, 1, 200, 200),
	})

	p := NewPipeline(openCamera(t, newFrames(t, 1), false), det, Config{Store: s, Source: "test"})

	res, err := p.RunOnce()
	require.NoError(t, err)

	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 48, res.Height)
	require.Len(t, res.Markers, 2)
	assert.Equal(t, int32(6), res.Markers[0].Code, "nearest first")
	require.NotEmpty(t, res.DetectionID)

	d, err := s.Detections().GetByID(res.DetectionID)
	require.NoError(t, err)
	assert.Equal(t, "test", d.Source)
	assert.Equal(t, res.Markers, d.Markers)

	assert.Equal(t, Stats{Frames: 1, Markers: 2}, p.Stats())
}

func TestPipeline_RunOnce_SkipsEmptyFrames(t *testing.T) {
	s := newTestStore(t)
	p := NewPipeline(openCamera(t, newFrames(t, 2), false), detector.NewMockDetector(), Config{Store: s})

	res, err := p.RunOnce()
	require.NoError(t, err)
	assert.Empty(t, res.DetectionID)

	list, err := s.Detections().List(0)
	require.NoError(t, err)
	assert.Empty(t, list)

	p.config.RecordEmpty = true
	res, err = p.RunOnce()
	require.NoError(t, err)
	assert.NotEmpty(t, res.DetectionID)
}

func TestPipeline_RunOnce_Errors(t *testing.T) {
	t.Run("closed camera", func(t *testing.T) {
		cam := capture.NewMockCamera(newFrames(t, 1), false)
		p := NewPipeline(cam, detector.NewMockDetector(), Config{})

		_, err := p.RunOnce()
		assert.ErrorIs(t, err, capture.ErrCameraNotOpen)
	})

	t.Run("detector failure", func(t *testing.T) {
		det := detector.NewMockDetector()
		boom := errors.New("boom")
		det.SetError(boom)
		p := NewPipeline(openCamera(t, newFrames(t, 1), false), det, Config{})

		_, err := p.RunOnce()
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, Stats{Frames: 1, Errors: 1}, p.Stats())
	})
}

func TestPipeline_OnResult(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetMarkers([]koki.Marker{detector.SampleMarker(1, 1, 10, 10)})
	p := NewPipeline(openCamera(t, newFrames(t, 1), false), det, Config{})

	var got []Result
	p.OnResult(func(r Result) { got = append(got, r) })

	_, err := p.RunOnce()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Markers, 1)
}

func TestPipeline_Run_StopsWhenSourceExhausted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timed test")
	}

	det := detector.NewMockDetector()
	p := NewPipeline(openCamera(t, newFrames(t, 3), false), det, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 3, p.Stats().Frames)
	assert.NoError(t, ctx.Err(), "should stop before the deadline")
}

func TestPipeline_Run_MaxFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timed test")
	}

	det := detector.NewMockDetector()
	det.SetMarkers([]koki.Marker{detector.SampleMarker(3, 1, 10, 10)})
	cam := openCamera(t, newFrames(t, 1), true)
	p := NewPipeline(cam, det, Config{MaxFrames: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, Stats{Frames: 4, Markers: 4}, p.Stats())
	assert.Equal(t, ActiveFPS, cam.FPS(), "sightings switch the source to active rate")
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	p := NewPipeline(openCamera(t, newFrames(t, 1), true), detector.NewMockDetector(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, p.Run(ctx))
}
