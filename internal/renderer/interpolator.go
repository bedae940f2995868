package renderer

// Keyframe is a camera pose at a frame offset within one segment.
// PanX/PanY are fractions (0..1) of the travel available at the current zoom:
// 0 keeps the left/top edge, 0.5 centers, 1 keeps the right/bottom edge.
type Keyframe struct {
	Frame int     `yaml:"frame"`
	Zoom  float64 `yaml:"zoom"`
	PanX  float64 `yaml:"pan_x"`
	PanY  float64 `yaml:"pan_y"`
}

// CameraState represents the camera position and zoom at a specific frame
type CameraState struct {
	Zoom float64
	PanX float64
	PanY float64
}

// Interpolate returns the linearly interpolated camera state at frame.
// Frames outside the keyframe range hold the nearest keyframe.
func Interpolate(keyframes []Keyframe, frame float64) CameraState {
	if len(keyframes) == 0 {
		return CameraState{Zoom: 1.0, PanX: 0.5, PanY: 0.5}
	}

	first, last := keyframes[0], keyframes[len(keyframes)-1]
	if frame <= float64(first.Frame) {
		return stateOf(first)
	}
	if frame >= float64(last.Frame) {
		return stateOf(last)
	}

	for i := 0; i < len(keyframes)-1; i++ {
		a, b := keyframes[i], keyframes[i+1]
		if frame < float64(a.Frame) || frame >= float64(b.Frame) {
			continue
		}
		span := float64(b.Frame - a.Frame)
		if span <= 0 {
			return stateOf(b)
		}
		t := (frame - float64(a.Frame)) / span
		return CameraState{
			Zoom: lerp(a.Zoom, b.Zoom, t),
			PanX: lerp(a.PanX, b.PanX, t),
			PanY: lerp(a.PanY, b.PanY, t),
		}
	}
	return stateOf(last)
}

// Offset converts a pan fraction into the top-left pixel of the visible
// window, given the frame size and zoom. This is what zoompan's x/y compute.
func Offset(size int, zoom, pan float64) float64 {
	if zoom < 1 {
		zoom = 1
	}
	travel := float64(size) - float64(size)/zoom
	return travel * pan
}

func stateOf(kf Keyframe) CameraState {
	return CameraState{Zoom: kf.Zoom, PanX: kf.PanX, PanY: kf.PanY}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
