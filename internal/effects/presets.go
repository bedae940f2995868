package effects

import (
	"github.com/kornfeb/Easy-Auto-Video/internal/renderer"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

// Preset is the start and end camera pose of a motion preset.
type Preset struct {
	ZoomStart, ZoomEnd float64
	PanXStart, PanXEnd float64
}

// PanZoom is the fixed zoom used by the pan presets; it leaves the travel
// room the pan needs.
const PanZoom = 1.15

var presets = map[timeline.Motion]Preset{
	timeline.MotionZoomIn:   {ZoomStart: 1.0, ZoomEnd: 1.15, PanXStart: 0.5, PanXEnd: 0.5},
	timeline.MotionZoomOut:  {ZoomStart: 1.15, ZoomEnd: 1.0, PanXStart: 0.5, PanXEnd: 0.5},
	timeline.MotionPanLeft:  {ZoomStart: PanZoom, ZoomEnd: PanZoom, PanXStart: 1.0, PanXEnd: 0.0},
	timeline.MotionPanRight: {ZoomStart: PanZoom, ZoomEnd: PanZoom, PanXStart: 0.0, PanXEnd: 1.0},
	timeline.MotionNone:     {ZoomStart: 1.0, ZoomEnd: 1.0, PanXStart: 0.5, PanXEnd: 0.5},
}

// PresetFor returns the preset for m, falling back to a static frame.
func PresetFor(m timeline.Motion) Preset {
	if p, ok := presets[m]; ok {
		return p
	}
	return presets[timeline.MotionNone]
}

// Keyframes expands a preset into start/end keyframes over frames.
// Vertical position always stays centered.
func Keyframes(m timeline.Motion, frames int) []renderer.Keyframe {
	p := PresetFor(m)
	last := frames - 1
	if last < 1 {
		last = 1
	}
	return []renderer.Keyframe{
		{Frame: 0, Zoom: p.ZoomStart, PanX: p.PanXStart, PanY: 0.5},
		{Frame: last, Zoom: p.ZoomEnd, PanX: p.PanXEnd, PanY: 0.5},
	}
}

// Camera is the visible window of a still at one frame: the zoom and the
// top-left offset in output pixels.
type Camera struct {
	Zoom float64 `json:"zoom"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CameraPath returns the first and last camera windows of motion m over
// frames on a width x height output.
func CameraPath(m timeline.Motion, frames, width, height int) (Camera, Camera) {
	kfs := Keyframes(m, frames)
	at := func(frame int) Camera {
		s := renderer.Interpolate(kfs, float64(frame))
		return Camera{
			Zoom: s.Zoom,
			X:    renderer.Offset(width, s.Zoom, s.PanX),
			Y:    renderer.Offset(height, s.Zoom, s.PanY),
		}
	}
	return at(0), at(kfs[len(kfs)-1].Frame)
}
