package timeline

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/region"
)

// Input carries everything the builder needs. AudioDuration is the length of
// the narration track including its leading and trailing silence padding.
type Input struct {
	ProjectID     string
	AudioDuration float64
	SilenceStart  float64
	SilenceEnd    float64
	MaxDuration   float64 // 0 disables the cap
	Assets        []Asset
	Intro         *Asset
	Crops         map[string]region.Rect
	AudioRef      string
}

// Build lays the assets out over the audio so that segments are contiguous
// and the last one ends exactly at silence_start + usable + silence_end.
func Build(in Input) (*Timeline, error) {
	if in.AudioDuration <= 0 || math.IsNaN(in.AudioDuration) || math.IsInf(in.AudioDuration, 0) {
		return nil, apperr.ErrNoAudio.WithDetail(fmt.Sprintf("audio duration %.3fs", in.AudioDuration))
	}
	if in.SilenceStart < 0 || in.SilenceEnd < 0 {
		return nil, apperr.Input(apperr.CodeInvalidInput,
			fmt.Sprintf("silence padding must be >= 0, got start=%.3f end=%.3f", in.SilenceStart, in.SilenceEnd),
			"ค่าช่วงเงียบต้องไม่ติดลบ")
	}

	tl := &Timeline{
		ProjectID:    in.ProjectID,
		SilenceStart: in.SilenceStart,
		SilenceEnd:   in.SilenceEnd,
		AudioRef:     in.AudioRef,
		GeneratedAt:  time.Now().UTC(),
	}

	intro := in.Intro
	pool := excludeIntro(in.Assets, intro)
	if len(pool) == 0 && intro == nil {
		return nil, apperr.ErrNoAssets
	}

	// the probed length is kept; only the laid-out time is capped
	tl.TotalAudioDuration = Round3(in.AudioDuration)
	total := in.AudioDuration
	if in.MaxDuration > 0 && total > in.MaxDuration {
		tl.Warnings = append(tl.Warnings, fmt.Sprintf("audio %.3fs capped to %.3fs", total, in.MaxDuration))
		total = in.MaxDuration
	}

	usable := total - in.SilenceStart - in.SilenceEnd
	if usable < 0 {
		tl.Degenerate = true
		tl.MotionDisabled = true
		tl.Warnings = append(tl.Warnings, fmt.Sprintf(
			"audio %.3fs is shorter than silence padding %.3fs; usable time floored at 0, motion disabled",
			total, in.SilenceStart+in.SilenceEnd))
		usable = 0
	}
	tl.UsableAudioDuration = Round3(usable)
	tl.TotalDuration = Round3(in.SilenceStart + usable + in.SilenceEnd)

	if intro != nil && in.SilenceStart <= 0 {
		tl.Warnings = append(tl.Warnings, "intro requested without leading silence; shown as first asset")
		pool = append([]Asset{*intro}, pool...)
		intro = nil
	}

	var slots []slot
	if intro != nil {
		slots = introLayout(*intro, pool, in.SilenceStart, tl.TotalDuration)
	} else {
		slots = evenLayout(pool, usable, in.SilenceStart)
	}

	tl.Segments = place(slots, tl.TotalDuration)
	if sum := tl.SegmentSum(); math.Abs(sum-tl.TotalDuration) > 0.001 {
		return nil, apperr.Defect("segments sum to %.3fs, timeline lasts %.3fs", sum, tl.TotalDuration)
	}
	for i := range tl.Segments {
		seg := &tl.Segments[i]
		seg.Motion = assignMotion(i, seg.IsVideo, tl.MotionDisabled)
		if r, ok := in.Crops[seg.Asset]; ok && !r.Empty() {
			crop := r
			seg.Crop = &crop
		}
	}

	return tl, nil
}

type slot struct {
	asset    Asset
	kind     Kind
	duration float64 // ignored for the last slot
}

// evenLayout splits usable time evenly; the first asset also covers the
// leading silence and the last one absorbs the trailing silence and drift.
func evenLayout(pool []Asset, usable, silenceStart float64) []slot {
	base := Round3(usable / float64(len(pool)))
	slots := make([]slot, len(pool))
	for i, a := range pool {
		d := base
		if i == 0 {
			d = Round3(base + silenceStart)
		}
		slots[i] = slot{asset: a, kind: KindAsset, duration: d}
	}
	return slots
}

// introLayout gives the intro exactly the leading silence and spreads the
// rest over the remaining assets.
func introLayout(intro Asset, pool []Asset, silenceStart, total float64) []slot {
	slots := []slot{{asset: intro, kind: KindIntro, duration: Round3(silenceStart)}}
	if len(pool) == 0 {
		return slots
	}
	base := Round3((total - silenceStart) / float64(len(pool)))
	for _, a := range pool {
		slots = append(slots, slot{asset: a, kind: KindAsset, duration: base})
	}
	return slots
}

// place turns slot durations into contiguous boundaries. Each boundary is
// rounded once and reused as the next start, so there are no gaps.
func place(slots []slot, total float64) []Segment {
	segs := make([]Segment, len(slots))
	last := Round3(total)
	start := 0.0
	for i, s := range slots {
		end := last
		if i < len(slots)-1 {
			end = math.Min(Round3(start+s.duration), last)
		}
		segs[i] = Segment{
			Index:    i,
			Asset:    s.asset.Ref,
			Kind:     s.kind,
			IsVideo:  s.asset.IsVideo,
			Start:    start,
			End:      end,
			Duration: Round3(end - start),
		}
		start = end
	}
	return segs
}

func assignMotion(i int, isVideo, disabled bool) Motion {
	if isVideo || disabled {
		return MotionNone
	}
	return MotionCycle[i%len(MotionCycle)]
}

func excludeIntro(assets []Asset, intro *Asset) []Asset {
	pool := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if intro != nil && filepath.Clean(a.Ref) == filepath.Clean(intro.Ref) {
			continue
		}
		pool = append(pool, a)
	}
	return pool
}
