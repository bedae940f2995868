package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds the global settings shared by every project.
type Config struct {
	ProjectsDir string `yaml:"projects_dir"`
	Workers     int    `yaml:"workers"`

	Video    VideoSettings  `yaml:"video"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Detector DetectorConfig `yaml:"detector"`
	Cover    CoverDefaults  `yaml:"cover"`
	Server   ServerConfig   `yaml:"server"`

	BuildVersion string `yaml:"-"`
}

// VideoSettings are the per-render parameters handed to the timeline builder
// and the compiler. Always passed by value.
type VideoSettings struct {
	Format             string  `yaml:"format"`
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	FPS                int     `yaml:"fps"`
	SilenceStart       float64 `yaml:"silence_start"`
	SilenceEnd         float64 `yaml:"silence_end"`
	MaxDuration        float64 `yaml:"max_duration"`
	Transition         string  `yaml:"transition"`
	TransitionDuration float64 `yaml:"transition_duration"`
	MotionEnabled      bool    `yaml:"motion_enabled"`
	UseCoverIntro      bool    `yaml:"use_cover_intro"`
}

type FFmpegConfig struct {
	Binary  string `yaml:"binary"`
	Encoder string `yaml:"encoder"` // auto, libx264, h264_nvenc, h264_videotoolbox
	Quality int    `yaml:"quality"` // 0 = auto per encoder
	Preset  string `yaml:"preset"`
	Threads int    `yaml:"threads"`
}

type DetectorConfig struct {
	Variant   string `yaml:"variant"` // contrast, gemini, none
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type CoverDefaults struct {
	Color      string `yaml:"color"`
	Background string `yaml:"background"` // none, box
	Position   string `yaml:"position"`   // top, center, bottom
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AspectRatio returns width/height of the target frame.
func (v VideoSettings) AspectRatio() float64 {
	if v.Height == 0 {
		return 0
	}
	return float64(v.Width) / float64(v.Height)
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Video.applyFormat(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ProjectsDir: "./projects",
		Workers:     runtime.NumCPU(),
		Video: VideoSettings{
			Format:             "portrait",
			Width:              1080,
			Height:             1920,
			FPS:                30,
			SilenceStart:       1.5,
			SilenceEnd:         1.5,
			Transition:         "fade",
			TransitionDuration: 0.5,
			MotionEnabled:      true,
		},
		FFmpeg: FFmpegConfig{
			Binary:  "ffmpeg",
			Encoder: "auto",
			Preset:  "medium",
		},
		Detector: DetectorConfig{
			Variant:   "contrast",
			Model:     "gemini-2.0-flash",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Cover: CoverDefaults{
			Color:      "#FFFFFF",
			Background: "box",
			Position:   "center",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Resolution maps a format preset to a frame size.
func Resolution(format string) (int, int, bool) {
	switch strings.ToLower(format) {
	case "portrait", "9:16":
		return 1080, 1920, true
	case "landscape", "16:9":
		return 1920, 1080, true
	case "square", "1:1":
		return 1080, 1080, true
	case "4:5":
		return 1080, 1350, true
	}
	return 0, 0, false
}

// applyFormat fills Width/Height from Format unless both were set explicitly.
func (v *VideoSettings) applyFormat() error {
	if v.Format == "" || v.Format == "custom" {
		if v.Width <= 0 || v.Height <= 0 {
			return fmt.Errorf("custom format needs positive width and height, got %dx%d", v.Width, v.Height)
		}
		return nil
	}
	w, h, ok := Resolution(v.Format)
	if !ok {
		return fmt.Errorf("unknown video format %q", v.Format)
	}
	v.Width, v.Height = w, h
	return nil
}

func findConfigFile() string {
	candidates := []string{
		"./settings.yaml",
		"./settings.yml",
		filepath.Join(os.Getenv("HOME"), ".autovideo", "settings.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext returns the config stored by WithConfig, or defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
