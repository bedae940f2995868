package engine

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/compiler"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
	"github.com/kornfeb/Easy-Auto-Video/internal/validator"
	"github.com/kornfeb/Easy-Auto-Video/internal/video"
)

// RenderReport summarizes one encode.
type RenderReport struct {
	ProjectID string                `json:"project_id"`
	Output    string                `json:"output"`
	Segments  int                   `json:"segments"`
	Assembly  compiler.AssemblyKind `json:"assembly"`
	Duration  float64               `json:"duration"`
	Elapsed   time.Duration         `json:"elapsed"`
	SizeBytes int64                 `json:"size_bytes"`
	Host      system.HostStats      `json:"host"`
}

// Render re-validates the saved timeline, compiles it and encodes the final
// video. Nothing is encoded unless the fresh dry run passes.
func (e *Engine) Render(ctx context.Context, id string, onProgress func(video.Progress)) (*RenderReport, error) {
	p, err := e.Open(id)
	if err != nil {
		return nil, err
	}
	log := e.log(ctx)
	started := time.Now()

	tl, err := p.Paths.LoadTimeline()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Input(apperr.CodeInvalidInput, "no timeline, build it first", "ยังไม่ได้สร้างไทม์ไลน์")
		}
		return nil, err
	}

	report := validator.Validate(tl, p.Paths.Exists, p.Settings.FPS)
	if err := p.Paths.SaveReport(report); err != nil {
		return nil, err
	}
	if report.Blocking() {
		return nil, report.Err()
	}

	plan, err := compiler.Compile(tl, report, compiler.OptionsFrom(p.Settings, tl.AudioRef))
	if err != nil {
		return nil, err
	}
	if err := compiler.WritePlan(plan, p.Paths.RenderPlan()); err != nil {
		return nil, err
	}
	compiled := time.Now()

	enc := e.encoder(p.Paths.Dir, log, onProgress)
	res, err := enc.Encode(ctx, plan, p.Paths.OutputVideo())
	if err != nil {
		return nil, err
	}

	rr := &RenderReport{
		ProjectID: id,
		Output:    res.OutputPath,
		Segments:  len(plan.Segments),
		Assembly:  plan.Assembly.Kind,
		Duration:  plan.Duration,
		Elapsed:   time.Since(started),
		SizeBytes: res.SizeBytes,
		Host:      system.CollectHostStats(0),
	}

	realtime := 0.0
	if res.Elapsed > 0 {
		realtime = plan.Duration / res.Elapsed.Seconds()
	}
	log.Info().
		Str("output", rr.Output).
		Int("segments", rr.Segments).
		Str("assembly", string(rr.Assembly)).
		Float64("duration", rr.Duration).
		Dur("compile", compiled.Sub(started)).
		Dur("encode", res.Elapsed).
		Dur("total", rr.Elapsed).
		Float64("realtime_x", realtime).
		Int64("bytes", rr.SizeBytes).
		Object("host", rr.Host).
		Msg("performance report")
	return rr, nil
}

// Plan returns the composition plan written by the last render.
func (e *Engine) Plan(id string) (*compiler.Plan, error) {
	paths, err := e.Store.Paths(id)
	if err != nil {
		return nil, err
	}
	return compiler.ReadPlan(paths.RenderPlan())
}
