package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kornfeb/Easy-Auto-Video/internal/analyzer"
	"github.com/kornfeb/Easy-Auto-Video/internal/config"
	"github.com/kornfeb/Easy-Auto-Video/internal/project"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
	"github.com/kornfeb/Easy-Auto-Video/internal/video"
)

// EncoderFactory builds the encoder used by one render. workDir is the
// project directory every plan input is relative to.
type EncoderFactory func(workDir string, logger zerolog.Logger, onProgress func(video.Progress)) video.Encoder

// Engine runs the build stages of a project: cover selection, subject
// detection, timeline, dry run and render. It holds no per-project state;
// everything is read from and written to the project store.
type Engine struct {
	Config   *config.Config
	Store    *project.Store
	Detector analyzer.SubjectDetector // nil disables subject detection
	Logger   zerolog.Logger

	// AudioDuration measures the narration track. Defaults to ffprobe.
	AudioDuration func(path string) (float64, error)
	// NewEncoder defaults to an ffmpeg encoder configured from Config.FFmpeg.
	NewEncoder EncoderFactory

	codecOnce sync.Once
	codec     string
}

func New(cfg *config.Config, store *project.Store, det analyzer.SubjectDetector, logger zerolog.Logger) *Engine {
	return &Engine{
		Config:        cfg,
		Store:         store,
		Detector:      det,
		Logger:        logger,
		AudioDuration: system.GetAudioDuration,
	}
}

// Project is a loaded project with its effective video settings.
type Project struct {
	Record   *project.Record
	Paths    project.Paths
	Settings config.VideoSettings
}

// Open loads a project and applies its overrides to the global video
// settings.
func (e *Engine) Open(id string) (*Project, error) {
	paths, err := e.Store.Paths(id)
	if err != nil {
		return nil, err
	}
	rec, err := e.Store.Load(id)
	if err != nil {
		return nil, err
	}
	return &Project{
		Record:   rec,
		Paths:    paths,
		Settings: rec.Settings.Video.Apply(e.Config.Video),
	}, nil
}

// log prefers the logger carried by ctx, which the runner points at the
// project's pipeline.log.
func (e *Engine) log(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return e.Logger
}

func (e *Engine) encoder(workDir string, logger zerolog.Logger, onProgress func(video.Progress)) video.Encoder {
	if e.NewEncoder != nil {
		return e.NewEncoder(workDir, logger, onProgress)
	}
	ff := e.Config.FFmpeg
	e.codecOnce.Do(func() {
		e.codec = system.ResolveEncoder(ff.Binary, ff.Encoder)
		logger.Info().Str("encoder", e.codec).Msg("selected video encoder")
	})
	return &video.FFmpegEncoder{
		Binary:     ff.Binary,
		Codec:      e.codec,
		Quality:    ff.Quality,
		Preset:     ff.Preset,
		Threads:    ff.Threads,
		WorkDir:    workDir,
		Logger:     logger,
		OnProgress: onProgress,
	}
}
