package video

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/compiler"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/validator"
)

func compile(t *testing.T, audio float64, opts compiler.Options, refs ...string) *compiler.Plan {
	t.Helper()
	var as []timeline.Asset
	for _, r := range refs {
		as = append(as, timeline.Asset{Ref: r})
	}
	tl, err := timeline.Build(timeline.Input{AudioDuration: audio, SilenceStart: 1.5, SilenceEnd: 1.5, Assets: as})
	require.NoError(t, err)
	report := validator.Validate(tl, nil, opts.FPS)
	plan, err := compiler.Compile(tl, report, opts)
	require.NoError(t, err)
	return plan
}

func indexOf(args []string, flag string) int {
	for i, a := range args {
		if a == flag {
			return i
		}
	}
	return -1
}

func TestBuildArgsCrossfade(t *testing.T) {
	opts := compiler.Options{Width: 1080, Height: 1920, FPS: 30, Transition: "fade", TransitionDuration: 0.5, MotionEnabled: true, AudioPath: "audio/voice.mp3"}
	plan := compile(t, 13, opts, "input/a.jpg", "input/b.jpg", "input/c.jpg")

	e := &FFmpegEncoder{Codec: "libx264"}
	args, err := e.BuildArgs(plan, "/tmp/out.mp4")
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-i input/a.jpg -i input/b.jpg -i input/c.jpg -i audio/voice.mp3")
	assert.Contains(t, joined, "-progress pipe:2")
	assert.Contains(t, joined, "-t 13.000")
	assert.Contains(t, joined, "-crf 23 -preset medium")
	assert.Contains(t, joined, "-pix_fmt yuv420p")
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])

	graph := args[indexOf(args, "-filter_complex")+1]
	assert.Contains(t, graph, "[v0][v1]xfade=transition=fade:duration=0.500:offset=4.583[x1]")
	assert.Contains(t, graph, "[x1][v2]xfade=transition=fade:duration=0.500:offset=7.916[vout]")
	assert.Contains(t, graph, "[3:a]apad,atrim=duration=13.000,asetpts=PTS-STARTPTS[aout]")
	assert.Equal(t, "[aout]", args[indexOf(args, "[vout]")+2])
}

func TestBuildArgsConcat(t *testing.T) {
	opts := compiler.Options{Width: 1920, Height: 1080, FPS: 25, Transition: "none"}
	plan := compile(t, 13, opts, "a.png", "b.png")

	e := &FFmpegEncoder{Codec: "h264_nvenc", Threads: 4}
	args, err := e.BuildArgs(plan, "out.mp4")
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-threads 4")
	assert.Contains(t, joined, "-cq 28")
	assert.NotContains(t, joined, "-c:a")
	assert.Equal(t, -1, indexOf(args, "[aout]"))

	graph := args[indexOf(args, "-filter_complex")+1]
	assert.Contains(t, graph, "[v0][v1]concat=n=2:v=1:a=0[vout]")
	assert.NotContains(t, graph, "xfade")
}

func TestBuildArgsSingleSegment(t *testing.T) {
	opts := compiler.Options{Width: 1080, Height: 1080, FPS: 30, Transition: "fade", TransitionDuration: 0.5}
	plan := compile(t, 10, opts, "only.jpg")

	graph, err := FilterGraph(plan)
	require.NoError(t, err)
	assert.Contains(t, graph, "[v0]null[vout]")
}

func TestBuildArgsRejectsEmptyPlan(t *testing.T) {
	e := &FFmpegEncoder{}
	_, err := e.BuildArgs(&compiler.Plan{}, "out.mp4")
	assert.Equal(t, apperr.CodeCompileDefect, apperr.CodeOf(err))
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		codec   string
		quality int
		preset  string
		want    []string
	}{
		{"h264_videotoolbox", 0, "", []string{"-b:v", "7500k"}},
		{"h264_videotoolbox", 50, "", []string{"-b:v", "5000k"}},
		{"h264_nvenc", 0, "", []string{"-cq", "28"}},
		{"libx264", 0, "", []string{"-crf", "23", "-preset", "medium"}},
		{"libx264", 18, "slow", []string{"-crf", "18", "-preset", "slow"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualityArgs(tt.codec, tt.quality, tt.preset), tt.codec)
	}
}

func TestXfadeName(t *testing.T) {
	assert.Equal(t, "fade", XfadeName("Crossfade"))
	assert.Equal(t, "fade", XfadeName(""))
	assert.Equal(t, "wipeleft", XfadeName("wipeleft"))
}

func TestStreamProgress(t *testing.T) {
	out := strings.Join([]string{
		"frame=150",
		"fps=60.5",
		"bitrate=1000kbits/s",
		"out_time_us=5000000",
		"out_time=00:00:05.000000",
		"speed=2.01x",
		"progress=continue",
		"[libx264 @ 0x1] something odd",
		"frame=300",
		"out_time_us=10000000",
		"progress=end",
	}, "\n")

	var got []Progress
	var logs []string
	streamProgress(strings.NewReader(out), 10, func(p Progress) { got = append(got, p) }, func(l string) { logs = append(logs, l) })

	require.Len(t, got, 2)
	assert.Equal(t, 150, got[0].Frame)
	assert.InDelta(t, 60.5, got[0].FPS, 1e-9)
	assert.InDelta(t, 50, got[0].Percentage, 1e-9)
	assert.Equal(t, "2.01x", got[0].Speed)
	assert.Equal(t, "00:00:05.000000", got[0].Time)
	assert.False(t, got[0].Done)

	assert.True(t, got[1].Done)
	assert.Equal(t, 100.0, got[1].Percentage)
	assert.Equal(t, []string{"[libx264 @ 0x1] something odd"}, logs)
}

func TestTailKeepsLastLines(t *testing.T) {
	tl := newTail(2)
	tl.add("a")
	tl.add("b")
	tl.add("c")
	assert.Equal(t, "b\nc", tl.String())
}

func skipIfNoEncoder(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil || !strings.Contains(string(out), "libx264") {
		t.Skip("ffmpeg without libx264")
	}
}

func TestEncodeStills(t *testing.T) {
	skipIfNoEncoder(t)

	dir := t.TempDir()
	for i, c := range []color.RGBA{{200, 30, 30, 255}, {30, 30, 200, 255}} {
		img := image.NewRGBA(image.Rect(0, 0, 96, 64))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
		}
		f, err := os.Create(filepath.Join(dir, []string{"a.png", "b.png"}[i]))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	opts := compiler.Options{Width: 64, Height: 64, FPS: 10, Transition: "fade", TransitionDuration: 0.2, MotionEnabled: true}
	var as []timeline.Asset
	for _, r := range []string{"a.png", "b.png"} {
		as = append(as, timeline.Asset{Ref: r})
	}
	tl, err := timeline.Build(timeline.Input{AudioDuration: 2, SilenceStart: 0.2, SilenceEnd: 0.2, Assets: as})
	require.NoError(t, err)
	plan, err := compiler.Compile(tl, validator.Validate(tl, nil, 10), opts)
	require.NoError(t, err)

	var updates int
	e := &FFmpegEncoder{Codec: "libx264", WorkDir: dir, Logger: zerolog.Nop(), OnProgress: func(Progress) { updates++ }}
	out := filepath.Join(dir, "out.mp4")
	res, err := e.Encode(context.Background(), plan, out)
	require.NoError(t, err)

	assert.Equal(t, StatusPass, res.Status)
	assert.Positive(t, res.SizeBytes)
	assert.Positive(t, updates)
}

func TestEncodeFailureIsTagged(t *testing.T) {
	skipIfNoEncoder(t)

	opts := compiler.Options{Width: 64, Height: 64, FPS: 10}
	plan := compile(t, 4, opts, "does-not-exist.png")

	e := &FFmpegEncoder{Codec: "libx264", WorkDir: t.TempDir(), Logger: zerolog.Nop()}
	res, err := e.Encode(context.Background(), plan, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, apperr.CodeEncodeFailed, apperr.CodeOf(err))
	assert.True(t, apperr.IsRecoverable(err))
}
