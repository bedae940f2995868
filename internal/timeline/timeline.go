package timeline

import (
	"math"
	"time"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
)

// Motion is a Ken Burns preset applied to a still image.
type Motion string

const (
	MotionZoomIn   Motion = "zoom_in"
	MotionZoomOut  Motion = "zoom_out"
	MotionPanLeft  Motion = "pan_left"
	MotionPanRight Motion = "pan_right"
	MotionNone     Motion = "none"
)

// MotionCycle is the order in which presets are assigned to segments.
var MotionCycle = []Motion{MotionZoomIn, MotionZoomOut, MotionPanLeft, MotionPanRight, MotionNone}

// Valid reports whether m is a known preset.
func (m Motion) Valid() bool {
	for _, c := range MotionCycle {
		if c == m {
			return true
		}
	}
	return false
}

// Kind distinguishes a generated intro/cover frame from regular assets.
type Kind string

const (
	KindAsset Kind = "asset"
	KindIntro Kind = "intro"
)

// Asset is one entry of the ordered asset list.
type Asset struct {
	Ref     string `json:"ref"`
	IsVideo bool   `json:"is_video"`
}

// Segment is one asset's on-screen window.
type Segment struct {
	Index    int          `json:"index"`
	Asset    string       `json:"asset"`
	Kind     Kind         `json:"kind"`
	IsVideo  bool         `json:"is_video"`
	Start    float64      `json:"start"`
	End      float64      `json:"end"`
	Duration float64      `json:"duration"`
	Motion   Motion       `json:"motion"`
	Crop     *region.Rect `json:"crop,omitempty"`
}

// Timeline is the render plan of record for one project.
type Timeline struct {
	ProjectID           string    `json:"project_id,omitempty"`
	TotalAudioDuration  float64   `json:"total_audio_duration"`
	UsableAudioDuration float64   `json:"usable_duration"`
	SilenceStart        float64   `json:"silence_start_duration"`
	SilenceEnd          float64   `json:"silence_end_duration"`
	TotalDuration       float64   `json:"total_duration"`
	AudioRef            string    `json:"audio,omitempty"`
	Segments            []Segment `json:"segments"`
	Degenerate          bool      `json:"degenerate,omitempty"`
	MotionDisabled      bool      `json:"motion_disabled,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// SegmentSum returns the sum of all segment durations.
func (t *Timeline) SegmentSum() float64 {
	sum := 0.0
	for _, s := range t.Segments {
		sum += s.Duration
	}
	return sum
}

// Round3 rounds to millisecond precision, the resolution of every boundary.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
