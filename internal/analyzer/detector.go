package analyzer

import (
	"context"
	"image"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
)

// Block is one candidate region found by a Detector.
type Block struct {
	Rect       image.Rectangle
	Type       string  // "object" for contrast regions
	Confidence float64 // 0.0-1.0
}

// Detector finds candidate regions in a decoded image.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// Detection is the primary subject of an image in normalized 0-1000
// coordinates.
type Detection struct {
	ROI        region.ROI `json:"roi"`
	Type       string     `json:"type"`
	Confidence float64    `json:"confidence"`
}

// SubjectDetector locates the primary subject of an image file. A nil
// Detection with a nil error means no clear subject.
type SubjectDetector interface {
	Name() string
	DetectSubject(ctx context.Context, path string) (*Detection, error)
}

// normalize maps a pixel rectangle of a w x h image into 0-1000 space.
func normalize(r image.Rectangle, w, h int) region.ROI {
	return region.ROI{
		YMin: float64(r.Min.Y) * 1000 / float64(h),
		XMin: float64(r.Min.X) * 1000 / float64(w),
		YMax: float64(r.Max.Y) * 1000 / float64(h),
		XMax: float64(r.Max.X) * 1000 / float64(w),
	}
}
