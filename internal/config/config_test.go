package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 1920, cfg.Video.Height)
	assert.Equal(t, 30, cfg.Video.FPS)
	assert.Equal(t, 1.5, cfg.Video.SilenceStart)
	assert.True(t, cfg.Video.MotionEnabled)
}

func TestLoadKeepsDefaultsForUnsetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	data := []byte("video:\n  format: landscape\n  transition: none\nworkers: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1920, cfg.Video.Width)
	assert.Equal(t, 1080, cfg.Video.Height)
	assert.Equal(t, "none", cfg.Video.Transition)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.Video.MotionEnabled, "unset bool must keep its default")
	assert.Equal(t, "contrast", cfg.Detector.Variant)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("video:\n  format: cinema\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	cfg := Default()
	cfg.Video.Format = "square"
	cfg.Video.Width, cfg.Video.Height = 1080, 1080
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Video, loaded.Video)
}

func TestResolution(t *testing.T) {
	tests := []struct {
		format string
		w, h   int
		ok     bool
	}{
		{"portrait", 1080, 1920, true},
		{"9:16", 1080, 1920, true},
		{"LANDSCAPE", 1920, 1080, true},
		{"4:5", 1080, 1350, true},
		{"1:1", 1080, 1080, true},
		{"vhs", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, h, ok := Resolution(tt.format)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestOverridesApply(t *testing.T) {
	base := Default().Video
	format := "landscape"
	motion := false
	silence := 0.0

	got := (&VideoOverrides{Format: &format, MotionEnabled: &motion, SilenceStart: &silence}).Apply(base)

	assert.Equal(t, 1920, got.Width)
	assert.False(t, got.MotionEnabled)
	assert.Equal(t, 0.0, got.SilenceStart)
	assert.Equal(t, base.SilenceEnd, got.SilenceEnd)
	assert.True(t, base.MotionEnabled, "base must not be mutated")

	var none *VideoOverrides
	assert.Equal(t, base, none.Apply(base))
}

func TestContextRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Workers = 7
	ctx := WithConfig(context.Background(), cfg)

	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, Default().Workers, FromContext(context.Background()).Workers)
}
