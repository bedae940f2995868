package region

import "math"

// NormalizedScale is the coordinate range of detector bounding boxes.
const NormalizedScale = 1000.0

// ROI is a detected subject bounding box in normalized 0-1000 units.
type ROI struct {
	YMin float64 `json:"ymin" yaml:"ymin"`
	XMin float64 `json:"xmin" yaml:"xmin"`
	YMax float64 `json:"ymax" yaml:"ymax"`
	XMax float64 `json:"xmax" yaml:"xmax"`
}

// Valid reports whether all bounds are in range and not inverted.
func (r ROI) Valid() bool {
	for _, v := range []float64{r.YMin, r.XMin, r.YMax, r.XMax} {
		if math.IsNaN(v) || v < 0 || v > NormalizedScale {
			return false
		}
	}
	return r.YMin < r.YMax && r.XMin < r.XMax
}

// Rect is a crop rectangle in source pixel space.
type Rect struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Inside reports whether r fits in a w x h source.
func (r Rect) Inside(w, h int) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.W <= w && r.Y+r.H <= h
}

// Resolve computes the largest crop of the target aspect ratio that fits the
// source, centered on the ROI center and clamped to the source bounds.
// The second result is false when no hint should be used.
func Resolve(srcW, srcH int, roi *ROI, aspect float64) (Rect, bool) {
	if roi == nil || !roi.Valid() || srcW <= 0 || srcH <= 0 || aspect <= 0 || math.IsInf(aspect, 0) {
		return Rect{}, false
	}

	w, h := FitAspect(srcW, srcH, aspect)

	x1 := roi.XMin / NormalizedScale * float64(srcW)
	x2 := roi.XMax / NormalizedScale * float64(srcW)
	y1 := roi.YMin / NormalizedScale * float64(srcH)
	y2 := roi.YMax / NormalizedScale * float64(srcH)
	cx, cy := (x1+x2)/2, (y1+y2)/2

	left := clamp(int(math.Round(cx-float64(w)/2)), 0, srcW-w)
	top := clamp(int(math.Round(cy-float64(h)/2)), 0, srcH-h)

	return Rect{X: left, Y: top, W: w, H: h}, true
}

// FitAspect returns the largest w x h of the given aspect ratio that fits in
// the source. Dimensions are truncated, never rounded up past the source.
func FitAspect(srcW, srcH int, aspect float64) (int, int) {
	var w, h int
	if float64(srcW)/float64(srcH) > aspect {
		h = srcH
		w = int(float64(srcH) * aspect)
	} else {
		w = srcW
		h = int(float64(srcW) / aspect)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w > srcW {
		w = srcW
	}
	if h > srcH {
		h = srcH
	}
	return w, h
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
