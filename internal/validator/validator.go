package validator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarning Status = "WARNING"
	StatusFail    Status = "FAIL"
)

const (
	DefaultFPS = 30

	// ContinuityTolerance is the allowed drift between a segment start and
	// the end of the previous segment.
	ContinuityTolerance = 0.05
	// CoverageTolerance is the allowed distance between the last segment end
	// and the timeline total.
	CoverageTolerance = 0.1
)

// Details holds diagnostic values that never affect the status.
type Details struct {
	EstimatedFrameCount int     `json:"estimated_frame_count"`
	FPS                 int     `json:"fps"`
	TotalDuration       float64 `json:"total_duration"`
	SegmentCount        int     `json:"segment_count"`
}

// Report is the outcome of one dry run.
type Report struct {
	Status    Status    `json:"status"`
	Errors    []string  `json:"errors"`
	Warnings  []string  `json:"warnings"`
	Details   Details   `json:"details"`
	CheckedAt time.Time `json:"checked_at"`
}

// Blocking reports whether the report forbids compilation.
func (r *Report) Blocking() bool {
	return r == nil || r.Status == StatusFail
}

// Err returns a tagged validation error for a FAIL report, nil otherwise.
func (r *Report) Err() error {
	if r == nil {
		return apperr.Validation("no dry-run report", nil)
	}
	if r.Status != StatusFail {
		return nil
	}
	return apperr.Validation("dry run failed", r.Errors)
}

// ExistsFunc tells whether an asset reference resolves to a file.
type ExistsFunc func(ref string) bool

// Validate checks a timeline before any encode. Every check contributes
// independently; missing assets are all collected.
func Validate(tl *timeline.Timeline, exists ExistsFunc, fps int) *Report {
	if fps <= 0 {
		fps = DefaultFPS
	}
	r := &Report{
		Errors:    []string{},
		Warnings:  []string{},
		CheckedAt: time.Now().UTC(),
	}
	if tl == nil {
		r.Errors = append(r.Errors, "Timeline is missing")
		r.Status = derive(r)
		return r
	}

	total := tl.TotalDuration
	if total <= 0 || math.IsNaN(total) {
		r.Errors = append(r.Errors, fmt.Sprintf("Invalid total duration in timeline: %.3f", total))
	}
	if len(tl.Segments) == 0 {
		r.Errors = append(r.Errors, "Timeline has no segments")
	}

	if exists != nil {
		var missing []string
		seen := map[string]bool{}
		for _, seg := range tl.Segments {
			if seen[seg.Asset] {
				continue
			}
			seen[seg.Asset] = true
			if !exists(seg.Asset) {
				missing = append(missing, seg.Asset)
			}
		}
		if len(missing) > 0 {
			r.Errors = append(r.Errors, "Missing asset files: "+strings.Join(missing, ", "))
		}
		if tl.AudioRef != "" && !exists(tl.AudioRef) {
			r.Errors = append(r.Errors, "Missing audio file: "+tl.AudioRef)
		}
	}

	cursor := 0.0
	for i, seg := range tl.Segments {
		if math.Abs(seg.Start-cursor) > ContinuityTolerance {
			kind := "Gap"
			if seg.Start < cursor {
				kind = "Overlap"
			}
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%s detected at segment %d (%s): expected start %.3f, got %.3f", kind, i, seg.Asset, cursor, seg.Start))
		}
		cursor = seg.End
	}

	if n := len(tl.Segments); n > 0 {
		last := tl.Segments[n-1]
		if math.Abs(last.End-total) > CoverageTolerance {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"Timeline end %.3f does not match total duration %.3f", last.End, total))
		}
	}

	if tl.Degenerate {
		r.Warnings = append(r.Warnings, "Audio is shorter than the silence padding; segments render without motion")
	}

	r.Details = Details{
		EstimatedFrameCount: int(math.Max(total, 0) * float64(fps)),
		FPS:                 fps,
		TotalDuration:       total,
		SegmentCount:        len(tl.Segments),
	}
	r.Status = derive(r)
	return r
}

func derive(r *Report) Status {
	switch {
	case len(r.Errors) > 0:
		return StatusFail
	case len(r.Warnings) > 0:
		return StatusWarning
	}
	return StatusPass
}
