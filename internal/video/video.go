package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/compiler"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Result describes one finished encode.
type Result struct {
	Status     Status        `json:"status"`
	OutputPath string        `json:"output_path"`
	Elapsed    time.Duration `json:"elapsed"`
	SizeBytes  int64         `json:"size_bytes"`
}

// Encoder executes a composition plan into a video file.
type Encoder interface {
	Encode(ctx context.Context, plan *compiler.Plan, outputPath string) (*Result, error)
}

// FFmpegEncoder runs the plan as a single ffmpeg filter_complex invocation.
// Relative inputs are resolved against WorkDir.
type FFmpegEncoder struct {
	Binary     string
	Codec      string
	Quality    int // 0 selects the codec default
	Preset     string
	Threads    int
	WorkDir    string
	Logger     zerolog.Logger
	OnProgress func(Progress)
}

func (e *FFmpegEncoder) Encode(ctx context.Context, plan *compiler.Plan, outputPath string) (*Result, error) {
	args, err := e.BuildArgs(plan, outputPath)
	if err != nil {
		return &Result{Status: StatusFail, OutputPath: outputPath}, err
	}

	binary := e.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	e.Logger.Debug().Str("cmd", binary).Strs("args", args).Msg("executing ffmpeg")

	started := time.Now()
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = e.WorkDir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &Result{Status: StatusFail, OutputPath: outputPath}, apperr.Encode(err, "stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return &Result{Status: StatusFail, OutputPath: outputPath}, apperr.Encode(err, "ffmpeg start")
	}

	tail := newTail(20)
	streamProgress(stderr, plan.Duration, func(p Progress) {
		if e.OnProgress != nil {
			e.OnProgress(p)
		}
	}, tail.add)

	waitErr := cmd.Wait()
	res := &Result{OutputPath: outputPath, Elapsed: time.Since(started)}
	if waitErr != nil {
		res.Status = StatusFail
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, ctx.Err()
		}
		return res, apperr.Encode(waitErr, tail.String())
	}

	if fi, err := os.Stat(outputPath); err == nil {
		res.SizeBytes = fi.Size()
	}
	res.Status = StatusPass
	e.Logger.Info().
		Str("output", outputPath).
		Dur("elapsed", res.Elapsed).
		Int64("bytes", res.SizeBytes).
		Msg("encode finished")
	return res, nil
}

// BuildArgs translates the plan into the ffmpeg argument list.
func (e *FFmpegEncoder) BuildArgs(plan *compiler.Plan, outputPath string) ([]string, error) {
	if plan == nil || len(plan.Segments) == 0 {
		return nil, apperr.Defect("encode called with an empty plan")
	}
	if outputPath == "" {
		return nil, apperr.Defect("encode called without an output path")
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if e.Threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.Threads))
	}
	args = append(args, "-progress", "pipe:2")

	for _, op := range plan.Segments {
		args = append(args, "-i", op.Input)
	}
	if plan.Audio != nil {
		args = append(args, "-i", plan.Audio.Path)
	}

	graph, err := FilterGraph(plan)
	if err != nil {
		return nil, err
	}
	args = append(args, "-filter_complex", graph, "-map", "[vout]")
	if plan.Audio != nil {
		args = append(args, "-map", "[aout]")
	}

	codec := e.Codec
	if codec == "" || codec == "auto" {
		codec = "libx264"
	}
	args = append(args,
		"-t", formatSeconds(plan.Duration),
		"-r", fmt.Sprintf("%d", plan.FPS),
		"-c:v", codec,
	)
	args = append(args, QualityArgs(codec, e.Quality, e.Preset)...)
	args = append(args, "-pix_fmt", "yuv420p")
	if plan.Audio != nil {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}
	args = append(args, "-movflags", "+faststart", outputPath)
	return args, nil
}

// FilterGraph builds the filter_complex: one chain per segment, then the
// assembly into [vout], then the audio fit into [aout].
func FilterGraph(plan *compiler.Plan) (string, error) {
	var parts []string
	for i, op := range plan.Segments {
		parts = append(parts, fmt.Sprintf("[%d:v]%s[v%d]", i, op.Filter, i))
	}

	n := len(plan.Segments)
	switch {
	case n == 1:
		parts = append(parts, "[v0]null[vout]")
	case plan.Assembly.Kind == compiler.AssemblyCrossfade:
		if len(plan.Assembly.Seams) != n-1 {
			return "", apperr.Defect("crossfade plan has %d seams for %d segments", len(plan.Assembly.Seams), n)
		}
		transition := XfadeName(plan.Assembly.Transition)
		prev := "[v0]"
		for k, seam := range plan.Assembly.Seams {
			out := fmt.Sprintf("[x%d]", k+1)
			if k == n-2 {
				out = "[vout]"
			}
			parts = append(parts, fmt.Sprintf("%s[v%d]xfade=transition=%s:duration=%s:offset=%s%s",
				prev, seam.Left+1, transition, formatSeconds(seam.Duration), formatSeconds(seam.Offset), out))
			prev = out
		}
	default:
		var inputs strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&inputs, "[v%d]", i)
		}
		parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vout]", inputs.String(), n))
	}

	if plan.Audio != nil {
		parts = append(parts, fmt.Sprintf("[%d:a]apad,atrim=duration=%s,asetpts=PTS-STARTPTS[aout]",
			n, formatSeconds(plan.Audio.Duration)))
	}
	return strings.Join(parts, ";"), nil
}

// XfadeName maps a configured transition style to an xfade transition.
func XfadeName(style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	switch s {
	case "", "crossfade", "dissolve_soft":
		return "fade"
	}
	return s
}

// DefaultQuality is the quality used when none is configured.
func DefaultQuality(codec string) int {
	switch codec {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// QualityArgs returns the rate-control flags understood by each encoder.
func QualityArgs(codec string, quality int, preset string) []string {
	if quality <= 0 {
		quality = DefaultQuality(codec)
	}
	switch codec {
	case "h264_videotoolbox":
		// VideoToolbox ignores -q:v on several versions; bitrate is reliable.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default:
		if preset == "" {
			preset = "medium"
		}
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", preset}
	}
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
