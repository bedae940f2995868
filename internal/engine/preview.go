package engine

import (
	"net/url"
	"path"

	"github.com/kornfeb/Easy-Auto-Video/internal/effects"
	"github.com/kornfeb/Easy-Auto-Video/internal/source"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

// MediaPrefix is the URL prefix under which project files are served.
const MediaPrefix = "/media"

// PreviewSegment is a timeline segment enriched for display.
type PreviewSegment struct {
	timeline.Segment
	URL    string      `json:"url"`
	Width  int         `json:"width,omitempty"`
	Height int         `json:"height,omitempty"`
	Camera *CameraPath `json:"camera,omitempty"`
}

// CameraPath is the motion a still plays in the output frame.
type CameraPath struct {
	Start effects.Camera `json:"start"`
	End   effects.Camera `json:"end"`
}

type Preview struct {
	Timeline *timeline.Timeline `json:"timeline"`
	Segments []PreviewSegment   `json:"segments"`
}

// Preview loads the saved timeline and attaches a media URL and the source
// dimensions to every segment, plus the camera path of each still. Missing
// files keep zero dimensions.
func (e *Engine) Preview(id string) (*Preview, error) {
	p, err := e.Open(id)
	if err != nil {
		return nil, err
	}
	tl, err := p.Paths.LoadTimeline()
	if err != nil {
		return nil, err
	}

	out := &Preview{Timeline: tl, Segments: make([]PreviewSegment, 0, len(tl.Segments))}
	for _, seg := range tl.Segments {
		ps := PreviewSegment{Segment: seg, URL: MediaURL(id, seg.Asset)}
		file := p.Paths.Resolve(seg.Asset)
		if seg.IsVideo {
			if info, err := system.Probe(file); err == nil {
				ps.Width, ps.Height = info.Width, info.Height
			}
		} else {
			if w, h, err := source.ImageDimensions(file); err == nil {
				ps.Width, ps.Height = w, h
			}
			ps.Camera = cameraPath(p, tl, seg)
		}
		out.Segments = append(out.Segments, ps)
	}
	return out, nil
}

func cameraPath(p *Project, tl *timeline.Timeline, seg timeline.Segment) *CameraPath {
	if seg.Duration <= 0 {
		return nil
	}
	motion := seg.Motion
	if !p.Settings.MotionEnabled || tl.MotionDisabled {
		motion = timeline.MotionNone
	}
	frames := effects.SegmentParams{FPS: p.Settings.FPS, Duration: seg.Duration}.Frames()
	start, end := effects.CameraPath(motion, frames, p.Settings.Width, p.Settings.Height)
	return &CameraPath{Start: start, End: end}
}

// MediaURL is the URL of a project-relative file.
func MediaURL(id, ref string) string {
	return path.Join(MediaPrefix, url.PathEscape(id), ref)
}
