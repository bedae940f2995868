package engine

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/cover"
	"github.com/kornfeb/Easy-Auto-Video/internal/project"
	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/source"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/validator"
)

// BuildTimeline lays the project's assets out over its narration track and
// saves timeline.json.
func (e *Engine) BuildTimeline(ctx context.Context, id string) (*timeline.Timeline, error) {
	p, err := e.Open(id)
	if err != nil {
		return nil, err
	}
	log := e.log(ctx)

	assets, err := source.ListAssets(p.Paths.Input())
	if err != nil {
		return nil, err
	}

	audioRef, err := system.ResolveAudio(p.Paths.Dir)
	if err != nil {
		return nil, apperr.ErrNoAudio.WithDetail(err.Error())
	}
	audioRef = filepath.ToSlash(audioRef)
	duration, err := e.AudioDuration(p.Paths.Resolve(audioRef))
	if err != nil {
		return nil, apperr.ErrNoAudio.WithDetail(err.Error())
	}

	refs := make([]timeline.Asset, 0, len(assets))
	for _, a := range assets {
		ref, err := p.Paths.Ref(a.Path)
		if err != nil {
			return nil, err
		}
		refs = append(refs, timeline.Asset{Ref: ref, IsVideo: a.IsVideo})
	}

	crops, err := e.cropsByRef(p, assets)
	if err != nil {
		return nil, err
	}

	var intro *timeline.Asset
	if p.Settings.UseCoverIntro {
		if p.Paths.Exists(cover.CoverName) {
			intro = &timeline.Asset{Ref: cover.CoverName}
		} else {
			log.Warn().Msg("cover intro requested but cover.jpg is missing")
		}
	}

	tl, err := timeline.Build(timeline.Input{
		ProjectID:     id,
		AudioDuration: duration,
		SilenceStart:  p.Settings.SilenceStart,
		SilenceEnd:    p.Settings.SilenceEnd,
		MaxDuration:   p.Settings.MaxDuration,
		Assets:        refs,
		Intro:         intro,
		Crops:         crops,
		AudioRef:      audioRef,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Paths.SaveTimeline(tl); err != nil {
		return nil, err
	}

	for _, w := range tl.Warnings {
		log.Warn().Msg(w)
	}
	log.Info().
		Str("audio", audioRef).
		Float64("audio_duration", duration).
		Float64("total", tl.TotalDuration).
		Int("segments", len(tl.Segments)).
		Int("crops", len(crops)).
		Msg("timeline built")
	return tl, nil
}

// cropsByRef turns crops.json entries, keyed by file name, into crop
// rectangles keyed by asset reference. Manual crops are used as stored;
// detected ones are re-resolved from their ROI so that a changed target
// format never uses a crop of the wrong aspect.
func (e *Engine) cropsByRef(p *Project, assets []source.Asset) (map[string]region.Rect, error) {
	stored, err := p.Paths.LoadCrops()
	if err != nil {
		return nil, err
	}
	aspect := p.Settings.AspectRatio()

	out := map[string]region.Rect{}
	for _, a := range assets {
		entry, ok := stored[a.Name]
		if !ok || a.IsVideo {
			continue
		}
		ref, err := p.Paths.Ref(a.Path)
		if err != nil {
			return nil, err
		}
		if rect, ok := entryRect(entry, aspect); ok {
			out[ref] = rect
		}
	}
	return out, nil
}

func entryRect(entry project.CropEntry, aspect float64) (region.Rect, bool) {
	if entry.Type != project.CropTypeManual && entry.ROI != nil {
		dim := entry.Dimensions
		if rect, ok := region.Resolve(dim.Width, dim.Height, entry.ROI, aspect); ok {
			return rect, true
		}
	}
	box := entry.CropBox
	if box == nil || box.Empty() {
		return region.Rect{}, false
	}
	// a box that no longer fits the recorded image is stale
	if dim := entry.Dimensions; dim.Width > 0 && dim.Height > 0 && !box.Inside(dim.Width, dim.Height) {
		return region.Rect{}, false
	}
	return *box, true
}

// DryRun validates the saved timeline against the files on disk and saves
// dry_run_report.json. A FAIL report is returned, not an error; a missing
// timeline yields a FAIL report.
func (e *Engine) DryRun(ctx context.Context, id string) (*validator.Report, error) {
	p, err := e.Open(id)
	if err != nil {
		return nil, err
	}
	tl, err := p.Paths.LoadTimeline()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	report := validator.Validate(tl, p.Paths.Exists, p.Settings.FPS)
	if err := p.Paths.SaveReport(report); err != nil {
		return nil, err
	}

	log := e.log(ctx)
	ev := log.Info()
	if report.Status != validator.StatusPass {
		ev = log.Warn().Strs("errors", report.Errors).Strs("warnings", report.Warnings)
	}
	ev.Str("status", string(report.Status)).
		Int("frames", report.Details.EstimatedFrameCount).
		Msg("dry run finished")
	return report, nil
}
