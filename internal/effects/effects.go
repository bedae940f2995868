package effects

import (
	"fmt"
	"math"
	"strings"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/renderer"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

// SegmentParams describes one segment's visual operation.
type SegmentParams struct {
	Width, Height int
	FPS           int
	Duration      float64 // operation duration, including transition padding
	Motion        timeline.Motion
	Crop          *region.Rect
	IsVideo       bool
	Index         int
}

// Frames is the number of output frames the operation produces.
func (p SegmentParams) Frames() int {
	n := int(math.Ceil(p.Duration*float64(p.FPS) - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}

type Effect interface {
	GenerateFilter(params SegmentParams) string
}

// Oversample is the upscale factor applied before zoompan to hide its
// integer-pixel jitter.
const Oversample = 2

// KenBurnsEffect renders stills with the motion presets and passes video
// clips through with padding.
type KenBurnsEffect struct{}

func (e *KenBurnsEffect) GenerateFilter(p SegmentParams) string {
	chain := []string{}
	if p.Crop != nil && !p.Crop.Empty() {
		chain = append(chain, fmt.Sprintf("crop=%d:%d:%d:%d", p.Crop.W, p.Crop.H, p.Crop.X, p.Crop.Y))
	}
	chain = append(chain,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", p.Width, p.Height),
		fmt.Sprintf("crop=%d:%d", p.Width, p.Height),
		"setsar=1",
	)

	dur := formatSeconds(p.Duration)
	if p.IsVideo {
		chain = append(chain,
			fmt.Sprintf("fps=%d", p.FPS),
			fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", dur),
		)
	} else {
		frames := p.Frames()
		chain = append(chain,
			fmt.Sprintf("scale=%d:%d", p.Width*Oversample, p.Height*Oversample),
			renderer.GenerateZoomPanFilter(Keyframes(p.Motion, frames), frames, p.FPS, p.Width, p.Height),
		)
	}

	chain = append(chain,
		fmt.Sprintf("trim=duration=%s", dur),
		"setpts=PTS-STARTPTS",
		"format=yuv420p",
	)
	return strings.Join(chain, ",")
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
