package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, size int, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestResolveAudioPriority(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "audio", "zzz.wav"), 10, now.Add(time.Hour))
	touch(t, filepath.Join(dir, "audio", "voice.mp3"), 10, now)

	got, err := ResolveAudio(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("audio", "voice.mp3"), got)

	touch(t, filepath.Join(dir, "audio", "voice_processed.mp3"), 10, now)
	got, err = ResolveAudio(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("audio", "voice_processed.mp3"), got)

	touch(t, filepath.Join(dir, "output", "final_audio_mix.wav"), 10, now)
	got, err = ResolveAudio(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("output", "final_audio_mix.wav"), got)
}

func TestResolveAudioFallsBackToLatest(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "audio", "voice_processed.mp3"), 0, now.Add(-2*time.Hour)) // empty
	touch(t, filepath.Join(dir, "audio", "old.m4a"), 10, now.Add(-time.Hour))
	touch(t, filepath.Join(dir, "audio", "new.ogg"), 10, now)
	touch(t, filepath.Join(dir, "audio", "notes.txt"), 10, now.Add(time.Hour))

	got, err := ResolveAudio(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("audio", "new.ogg"), got)
}

func TestResolveAudioMissing(t *testing.T) {
	_, err := ResolveAudio(t.TempDir())
	assert.Error(t, err)
}

func TestIsAudio(t *testing.T) {
	assert.True(t, IsAudio("Voice.MP3"))
	assert.True(t, IsAudio("a.flac"))
	assert.False(t, IsAudio("a.mp4"))
}

func TestPickEncoder(t *testing.T) {
	assert.Equal(t, "h264_nvenc", pickEncoder(" V....D h264_nvenc  NVIDIA NVENC H.264 encoder"))
	assert.Equal(t, "h264_videotoolbox", pickEncoder("h264_nvenc\nh264_videotoolbox"))
	assert.Equal(t, "libx264", pickEncoder(" V....D libx264 "))
	assert.Equal(t, "h264_nvenc", ResolveEncoder("ffmpeg", "h264_nvenc"))
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080},
			{"codec_type": "audio", "duration": "12.480000"}
		],
		"format": {"duration": "12.500000"}
	}`)
	info, err := parseProbe(data)
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.True(t, info.HasVideo)
	assert.True(t, info.HasAudio)
	assert.InDelta(t, 12.5, info.Duration, 1e-9)

	info, err = parseProbe([]byte(`{"streams":[{"codec_type":"audio","duration":"3.2"}],"format":{}}`))
	require.NoError(t, err)
	assert.InDelta(t, 3.2, info.Duration, 1e-9)

	_, err = parseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestSuggestWorkers(t *testing.T) {
	assert.Equal(t, 4, SuggestWorkers(0, HostStats{LogicalCPUs: 4}))
	assert.Equal(t, 4, SuggestWorkers(16, HostStats{LogicalCPUs: 4}))
	assert.Equal(t, 2, SuggestWorkers(8, HostStats{LogicalCPUs: 8, MemAvailableMB: 600}))
	assert.Equal(t, 1, SuggestWorkers(8, HostStats{LogicalCPUs: 8, MemAvailableMB: 10}))
}

func TestCollectHostStats(t *testing.T) {
	s := CollectHostStats(0)
	assert.Positive(t, s.LogicalCPUs)
	assert.Positive(t, s.GoroutineCount)
}

func TestImagePoolReusesBySize(t *testing.T) {
	p := NewImagePool()
	rect := image.Rect(0, 0, 8, 8)
	img := p.Get(rect)
	assert.Equal(t, rect, img.Rect)
	p.Put(img)
	p.Put(nil)

	other := p.Get(image.Rect(0, 0, 4, 4))
	assert.Equal(t, 4, other.Rect.Dx())
}
