package analyzer

import (
	"context"
	"image"

	"golang.org/x/image/draw"

	"github.com/kornfeb/Easy-Auto-Video/internal/source"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
)

// AnalysisSize is the longest side images are reduced to before edge
// detection.
const AnalysisSize = 320

// unionShare is the minimum area, relative to the largest block, for a block
// to be merged into the subject.
const unionShare = 0.1

func (d *ContrastDetector) Name() string { return "contrast" }

// DetectSubject merges the significant contrast blocks of the image into a
// single subject box.
func (d *ContrastDetector) DetectSubject(ctx context.Context, path string) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := source.DecodeImage(path)
	if err != nil {
		return nil, err
	}

	small, release := downscale(img, AnalysisSize)
	defer release()

	blocks, err := d.Detect(small)
	if err != nil {
		return nil, err
	}
	box, conf, ok := subjectBox(blocks)
	if !ok {
		return nil, nil
	}
	b := small.Bounds()
	return &Detection{
		ROI:        normalize(box.Sub(b.Min), b.Dx(), b.Dy()),
		Type:       "object",
		Confidence: conf,
	}, nil
}

func subjectBox(blocks []Block) (image.Rectangle, float64, bool) {
	if len(blocks) == 0 {
		return image.Rectangle{}, 0, false
	}
	largest := 0
	for _, b := range blocks {
		if a := b.Rect.Dx() * b.Rect.Dy(); a > largest {
			largest = a
		}
	}
	var box image.Rectangle
	conf := 0.0
	for _, b := range blocks {
		if float64(b.Rect.Dx()*b.Rect.Dy()) < unionShare*float64(largest) {
			continue
		}
		box = box.Union(b.Rect)
		if b.Confidence > conf {
			conf = b.Confidence
		}
	}
	return box, conf, !box.Empty()
}

// downscale fits img into a maxSide square using a pooled buffer. Small
// images are returned as is.
func downscale(img image.Image, maxSide int) (image.Image, func()) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img, func() {}
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := system.GetImage(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, func() { system.PutImage(dst) }
}
