package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/config"
	"github.com/kornfeb/Easy-Auto-Video/internal/effects"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/validator"
)

// Options are the style parameters of one compilation.
type Options struct {
	Width, Height      int
	FPS                int
	Transition         string
	TransitionDuration float64
	MotionEnabled      bool
	AudioPath          string
	Effect             effects.Effect
}

// OptionsFrom builds Options from the effective video settings.
func OptionsFrom(v config.VideoSettings, audioPath string) Options {
	return Options{
		Width:              v.Width,
		Height:             v.Height,
		FPS:                v.FPS,
		Transition:         v.Transition,
		TransitionDuration: v.TransitionDuration,
		MotionEnabled:      v.MotionEnabled,
		AudioPath:          audioPath,
	}
}

// TransitionsRequested reports whether a cross-fade style was asked for.
func (o Options) TransitionsRequested() bool {
	style := strings.TrimSpace(strings.ToLower(o.Transition))
	return style != "" && style != "none" && o.TransitionDuration > 0
}

// Compile turns a validated timeline into a composition plan. A missing or
// FAIL report is refused; broken invariants are reported as defects.
func Compile(tl *timeline.Timeline, report *validator.Report, opts Options) (*Plan, error) {
	if report.Blocking() {
		return nil, report.Err()
	}
	if tl == nil {
		return nil, apperr.Defect("compile called without a timeline")
	}
	if opts.FPS <= 0 {
		return nil, apperr.Defect("frame rate must be positive, got %d", opts.FPS)
	}
	if report.Details.FPS > 0 && report.Details.FPS != opts.FPS {
		return nil, apperr.Defect("inconsistent frame rates: validated at %d fps, compiling at %d fps", report.Details.FPS, opts.FPS)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, apperr.Defect("invalid target resolution %dx%d", opts.Width, opts.Height)
	}
	effect := opts.Effect
	if effect == nil {
		effect = &effects.KenBurnsEffect{}
	}

	plan := &Plan{
		Width:    opts.Width,
		Height:   opts.Height,
		FPS:      opts.FPS,
		Duration: tl.TotalDuration,
		Assembly: Assembly{Kind: AssemblyConcat},
	}

	motionOn := opts.MotionEnabled && !tl.MotionDisabled
	skipped := 0
	for _, seg := range tl.Segments {
		if seg.Crop != nil && seg.Crop.Empty() {
			return nil, apperr.Defect("segment %d (%s) carries an empty crop region", seg.Index, seg.Asset)
		}
		if !seg.Motion.Valid() {
			return nil, apperr.Defect("segment %d (%s) has unknown motion %q", seg.Index, seg.Asset, seg.Motion)
		}
		if seg.Duration <= 0 {
			skipped++
			continue
		}
		motion := seg.Motion
		if !motionOn || seg.IsVideo {
			motion = timeline.MotionNone
		}
		plan.Segments = append(plan.Segments, SegmentOp{
			Index:        seg.Index,
			Input:        seg.Asset,
			IsVideo:      seg.IsVideo,
			Start:        seg.Start,
			BaseDuration: seg.Duration,
			FPS:          opts.FPS,
			Motion:       motion,
			Crop:         seg.Crop,
		})
	}
	if len(plan.Segments) == 0 {
		return nil, apperr.Defect("timeline has no segment with positive duration")
	}
	if skipped > 0 {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d zero-length segment(s) skipped", skipped))
	}

	td := opts.TransitionDuration
	crossfade := opts.TransitionsRequested() && len(plan.Segments) > 1
	if crossfade {
		for _, op := range plan.Segments {
			if op.BaseDuration < 2*td {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf(
					"transitions disabled: segment %d lasts %.3fs, shorter than 2 x %.3fs", op.Index, op.BaseDuration, td))
				crossfade = false
				break
			}
		}
	}

	if crossfade {
		plan.Assembly = Assembly{Kind: AssemblyCrossfade, Transition: strings.TrimSpace(opts.Transition)}
		half := td / 2
		last := len(plan.Segments) - 1
		cumulative := 0.0
		for i := range plan.Segments {
			op := &plan.Segments[i]
			if i > 0 {
				op.LeadPad = half
			}
			if i < last {
				op.TailPad = half
			}
			cumulative += op.BaseDuration
			if i < last {
				plan.Assembly.Seams = append(plan.Assembly.Seams, Seam{
					Left:     i,
					Offset:   timeline.Round3(cumulative - half),
					Duration: td,
				})
			}
		}
	}

	for i := range plan.Segments {
		op := &plan.Segments[i]
		op.Duration = timeline.Round3(op.BaseDuration + op.LeadPad + op.TailPad)
		params := effects.SegmentParams{
			Width:    plan.Width,
			Height:   plan.Height,
			FPS:      plan.FPS,
			Duration: op.Duration,
			Motion:   op.Motion,
			Crop:     op.Crop,
			IsVideo:  op.IsVideo,
			Index:    op.Index,
		}
		op.Frames = params.Frames()
		op.Filter = effect.GenerateFilter(params)
	}

	if out := plan.OutputDuration(); math.Abs(out-plan.Duration) > validator.CoverageTolerance {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"assembled video lasts %.3fs, timeline %.3fs; audio is padded or trimmed to the timeline", out, plan.Duration))
	}

	if opts.AudioPath != "" {
		plan.Audio = &AudioTrack{Path: opts.AudioPath, Duration: tl.TotalDuration}
	}

	return plan, nil
}

// OutputDuration is the length of the assembled video stream: the sum of
// operation durations minus the overlap consumed by each seam.
func (p *Plan) OutputDuration() float64 {
	total := 0.0
	for _, op := range p.Segments {
		total += op.Duration
	}
	for _, s := range p.Assembly.Seams {
		total -= s.Duration
	}
	return timeline.Round3(total)
}
