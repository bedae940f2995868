package timeline

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/region"
)

func assets(refs ...string) []Asset {
	out := make([]Asset, len(refs))
	for i, r := range refs {
		out[i] = Asset{Ref: r}
	}
	return out
}

func checkInvariants(t *testing.T, tl *Timeline) {
	t.Helper()
	if len(tl.Segments) == 0 {
		t.Fatal("no segments")
	}
	if tl.Segments[0].Start != 0 {
		t.Errorf("first segment starts at %v", tl.Segments[0].Start)
	}
	for i := 1; i < len(tl.Segments); i++ {
		if tl.Segments[i].Start != tl.Segments[i-1].End {
			t.Errorf("gap at %d: prev end %v, start %v", i, tl.Segments[i-1].End, tl.Segments[i].Start)
		}
	}
	for i, s := range tl.Segments {
		if math.Abs(s.Start+s.Duration-s.End) > 0.0005 {
			t.Errorf("segment %d: start %v + duration %v != end %v", i, s.Start, s.Duration, s.End)
		}
		if s.Duration < 0 {
			t.Errorf("segment %d has negative duration %v", i, s.Duration)
		}
	}
	last := tl.Segments[len(tl.Segments)-1]
	if math.Abs(last.End-tl.TotalDuration) > 0.01 {
		t.Errorf("last end %v, total %v", last.End, tl.TotalDuration)
	}
	if math.Abs(tl.SegmentSum()-tl.TotalDuration) > 0.01 {
		t.Errorf("sum %v, total %v", tl.SegmentSum(), tl.TotalDuration)
	}
}

func TestBuildThreeAssets(t *testing.T) {
	tl, err := Build(Input{
		AudioDuration: 13.0,
		SilenceStart:  1.5,
		SilenceEnd:    1.5,
		Assets:        assets("A.jpg", "B.jpg", "C.jpg"),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkInvariants(t, tl)

	if tl.UsableAudioDuration != 10.0 {
		t.Errorf("usable = %v, want 10", tl.UsableAudioDuration)
	}
	want := []struct {
		start, end, dur float64
	}{
		{0, 4.833, 4.833},
		{4.833, 8.166, 3.333},
		{8.166, 13.0, 4.834},
	}
	for i, w := range want {
		s := tl.Segments[i]
		if s.Start != w.start || s.End != w.end || s.Duration != w.dur {
			t.Errorf("segment %d = [%v, %v] d=%v, want [%v, %v] d=%v", i, s.Start, s.End, s.Duration, w.start, w.end, w.dur)
		}
	}
	if tl.Segments[2].End != 13.0 {
		t.Errorf("C must end exactly at 13.0, got %v", tl.Segments[2].End)
	}
}

func TestBuildSingleAsset(t *testing.T) {
	tl, err := Build(Input{AudioDuration: 13.0, SilenceStart: 1.5, SilenceEnd: 1.5, Assets: assets("only.png")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tl.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(tl.Segments))
	}
	s := tl.Segments[0]
	if s.Start != 0 || s.End != 13.0 || s.Duration != 13.0 {
		t.Errorf("single segment = [%v, %v] d=%v", s.Start, s.End, s.Duration)
	}
}

func TestBuildMotionCycle(t *testing.T) {
	in := Input{AudioDuration: 30, SilenceStart: 1, SilenceEnd: 1, Assets: assets("1", "2", "3", "4", "5", "6", "7")}
	in.Assets[3].IsVideo = true

	tl, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []Motion{MotionZoomIn, MotionZoomOut, MotionPanLeft, MotionNone, MotionNone, MotionZoomIn, MotionZoomOut}
	for i, m := range want {
		if tl.Segments[i].Motion != m {
			t.Errorf("segment %d motion = %s, want %s", i, tl.Segments[i].Motion, m)
		}
	}
	if !tl.Segments[3].IsVideo {
		t.Error("video flag lost")
	}
}

func TestBuildWithIntro(t *testing.T) {
	intro := &Asset{Ref: "cover.jpg"}
	tl, err := Build(Input{
		AudioDuration: 13.0,
		SilenceStart:  1.5,
		SilenceEnd:    1.5,
		Assets:        assets("cover.jpg", "A.jpg", "B.jpg"),
		Intro:         intro,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkInvariants(t, tl)

	if len(tl.Segments) != 3 {
		t.Fatalf("cover must not appear twice, got %d segments", len(tl.Segments))
	}
	if tl.Segments[0].Kind != KindIntro || tl.Segments[0].Duration != 1.5 {
		t.Errorf("intro segment = %+v", tl.Segments[0])
	}
	if tl.Segments[1].Duration != 5.75 || tl.Segments[2].End != 13.0 {
		t.Errorf("remaining split wrong: %+v", tl.Segments[1:])
	}
}

func TestBuildIntroWithoutSilenceIsDemoted(t *testing.T) {
	tl, err := Build(Input{
		AudioDuration: 9,
		Assets:        assets("A.jpg", "B.jpg"),
		Intro:         &Asset{Ref: "cover.jpg"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkInvariants(t, tl)
	if tl.Segments[0].Asset != "cover.jpg" || tl.Segments[0].Kind != KindAsset {
		t.Errorf("intro should lead as a regular asset, got %+v", tl.Segments[0])
	}
	if tl.Segments[0].Duration != 3 {
		t.Errorf("expected even split, got %v", tl.Segments[0].Duration)
	}
}

func TestBuildDegenerate(t *testing.T) {
	tl, err := Build(Input{AudioDuration: 2.0, SilenceStart: 1.5, SilenceEnd: 1.5, Assets: assets("A", "B", "C")})
	if err != nil {
		t.Fatalf("degenerate input must not fail: %v", err)
	}
	checkInvariants(t, tl)

	if !tl.Degenerate || !tl.MotionDisabled || len(tl.Warnings) == 0 {
		t.Errorf("degenerate flags not set: %+v", tl)
	}
	if tl.UsableAudioDuration != 0 || tl.TotalDuration != 3.0 {
		t.Errorf("usable %v total %v", tl.UsableAudioDuration, tl.TotalDuration)
	}
	for i, s := range tl.Segments {
		if s.Motion != MotionNone {
			t.Errorf("segment %d motion %s, want none", i, s.Motion)
		}
	}
}

func TestBuildCapsDuration(t *testing.T) {
	tl, err := Build(Input{AudioDuration: 100, SilenceStart: 1, SilenceEnd: 1, MaxDuration: 20, Assets: assets("A", "B")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkInvariants(t, tl)
	if tl.TotalDuration != 20 || tl.UsableAudioDuration != 18 {
		t.Errorf("cap not applied: total %v usable %v", tl.TotalDuration, tl.UsableAudioDuration)
	}
	if tl.TotalAudioDuration != 100 {
		t.Errorf("total audio duration %v, want the uncapped 100", tl.TotalAudioDuration)
	}
	if len(tl.Warnings) != 1 {
		t.Errorf("warnings %v, want the cap warning", tl.Warnings)
	}
}

func TestBuildAttachesCrops(t *testing.T) {
	crops := map[string]region.Rect{
		"A": {X: 10, Y: 0, W: 562, H: 1000},
		"B": {},
	}
	tl, err := Build(Input{AudioDuration: 10, Assets: assets("A", "B", "C"), Crops: crops})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tl.Segments[0].Crop == nil || tl.Segments[0].Crop.W != 562 {
		t.Errorf("crop for A missing: %+v", tl.Segments[0].Crop)
	}
	if tl.Segments[1].Crop != nil {
		t.Error("empty crop must not be attached")
	}
	if tl.Segments[2].Crop != nil {
		t.Error("C has no crop")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"no assets", Input{AudioDuration: 10}, apperr.ErrNoAssets},
		{"zero audio", Input{Assets: assets("A")}, apperr.ErrNoAudio},
		{"negative audio", Input{AudioDuration: -1, Assets: assets("A")}, apperr.ErrNoAudio},
		{"nan audio", Input{AudioDuration: math.NaN(), Assets: assets("A")}, apperr.ErrNoAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if !apperr.IsRecoverable(err) {
				t.Error("input errors must be recoverable")
			}
		})
	}

	_, err := Build(Input{AudioDuration: 10, SilenceStart: -1, Assets: assets("A")})
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("negative silence: got %v", err)
	}
}

func TestBuildInvariantsRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(40)
		refs := make([]string, n)
		for j := range refs {
			refs[j] = fmt.Sprintf("img_%d.jpg", j)
		}
		in := Input{
			AudioDuration: 0.5 + r.Float64()*120,
			SilenceStart:  r.Float64() * 3,
			SilenceEnd:    r.Float64() * 3,
			Assets:        assets(refs...),
		}
		tl, err := Build(in)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		checkInvariants(t, tl)
		if len(tl.Segments) != n {
			t.Fatalf("case %d: %d segments for %d assets", i, len(tl.Segments), n)
		}
	}
}
