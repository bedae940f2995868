package effects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/renderer"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

func TestPresetsMatchMotionCycle(t *testing.T) {
	for _, m := range timeline.MotionCycle {
		_, ok := presets[m]
		assert.True(t, ok, "missing preset for %s", m)
	}
	assert.Equal(t, presets[timeline.MotionNone], PresetFor("wobble"))
}

func TestKeyframesReachEndPose(t *testing.T) {
	tests := []struct {
		motion             timeline.Motion
		zoomStart, zoomEnd float64
		panStart, panEnd   float64
	}{
		{timeline.MotionZoomIn, 1.0, 1.15, 0.5, 0.5},
		{timeline.MotionZoomOut, 1.15, 1.0, 0.5, 0.5},
		{timeline.MotionPanLeft, PanZoom, PanZoom, 1.0, 0.0},
		{timeline.MotionPanRight, PanZoom, PanZoom, 0.0, 1.0},
		{timeline.MotionNone, 1.0, 1.0, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.motion), func(t *testing.T) {
			kfs := Keyframes(tt.motion, 90)
			start := renderer.Interpolate(kfs, 0)
			end := renderer.Interpolate(kfs, 89)

			assert.InDelta(t, tt.zoomStart, start.Zoom, 1e-9)
			assert.InDelta(t, tt.zoomEnd, end.Zoom, 1e-9)
			assert.InDelta(t, tt.panStart, start.PanX, 1e-9)
			assert.InDelta(t, tt.panEnd, end.PanX, 1e-9)
			assert.InDelta(t, 0.5, end.PanY, 1e-9)
		})
	}
}

func TestCameraPath(t *testing.T) {
	start, end := CameraPath(timeline.MotionZoomIn, 90, 1080, 1920)
	assert.Equal(t, Camera{Zoom: 1, X: 0, Y: 0}, start)
	assert.InDelta(t, 1.15, end.Zoom, 1e-9)
	assert.InDelta(t, (1080-1080/1.15)/2, end.X, 1e-9)
	assert.InDelta(t, (1920-1920/1.15)/2, end.Y, 1e-9)

	start, end = CameraPath(timeline.MotionPanRight, 90, 1080, 1920)
	assert.Zero(t, start.X)
	assert.InDelta(t, 1080-1080/PanZoom, end.X, 1e-9)
	assert.Equal(t, start.Y, end.Y)

	start, end = CameraPath(timeline.MotionNone, 1, 1080, 1920)
	assert.Equal(t, start, end)
}

func TestFrames(t *testing.T) {
	assert.Equal(t, 145, SegmentParams{FPS: 30, Duration: 4.833}.Frames())
	assert.Equal(t, 30, SegmentParams{FPS: 30, Duration: 1.0}.Frames())
	assert.Equal(t, 1, SegmentParams{FPS: 30, Duration: 0}.Frames())
}

func TestGenerateFilterStillCenterCrop(t *testing.T) {
	e := &KenBurnsEffect{}
	f := e.GenerateFilter(SegmentParams{Width: 1080, Height: 1920, FPS: 30, Duration: 3.5, Motion: timeline.MotionZoomIn})

	assert.True(t, strings.HasPrefix(f, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,setsar=1"), f)
	assert.Contains(t, f, "scale=2160:3840")
	assert.Contains(t, f, "zoompan=")
	assert.Contains(t, f, ":d=105:")
	assert.True(t, strings.HasSuffix(f, "trim=duration=3.500,setpts=PTS-STARTPTS,format=yuv420p"), f)
	assert.NotContains(t, f, "tpad")
}

func TestGenerateFilterUsesCropHint(t *testing.T) {
	e := &KenBurnsEffect{}
	crop := &region.Rect{X: 419, Y: 0, W: 562, H: 1000}
	f := e.GenerateFilter(SegmentParams{Width: 1080, Height: 1920, FPS: 30, Duration: 2, Motion: timeline.MotionNone, Crop: crop})

	assert.True(t, strings.HasPrefix(f, "crop=562:1000:419:0,scale=1080:1920"), f)
}

func TestGenerateFilterVideoClip(t *testing.T) {
	e := &KenBurnsEffect{}
	f := e.GenerateFilter(SegmentParams{Width: 1920, Height: 1080, FPS: 30, Duration: 4.25, IsVideo: true})

	assert.NotContains(t, f, "zoompan")
	assert.Contains(t, f, "fps=30,tpad=stop_mode=clone:stop_duration=4.250")
	assert.Contains(t, f, "trim=duration=4.250")
}
