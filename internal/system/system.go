package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// InitResourceLimits raises the open-file limit; ffmpeg graphs with many
// inputs hold one descriptor per asset.
func InitResourceLimits(logger zerolog.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("could not raise open file limit")
	} else {
		logger.Debug().Uint64("limit", uint64(rLimit.Cur)).Msg("open file limit raised")
	}
}

var audioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}

// IsAudio reports whether name has a known audio extension.
func IsAudio(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatestAudio returns the most recently modified audio file in dir.
func FindLatestAudio(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || strings.HasPrefix(f.Name(), ".") || !IsAudio(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no audio files found in %s", dir)
	}

	return latestFile, nil
}

// AudioCandidates lists the narration files in priority order, relative to
// the project directory.
var AudioCandidates = []string{
	filepath.Join("output", "final_audio_mix.wav"),
	filepath.Join("audio", "voice_processed.mp3"),
	filepath.Join("audio", "voice.mp3"),
}

// ResolveAudio picks the narration track of a project and returns it
// relative to projectDir. The latest file in audio/ is the last resort.
func ResolveAudio(projectDir string) (string, error) {
	for _, rel := range AudioCandidates {
		if fi, err := os.Stat(filepath.Join(projectDir, rel)); err == nil && !fi.IsDir() && fi.Size() > 0 {
			return rel, nil
		}
	}
	latest, err := FindLatestAudio(filepath.Join(projectDir, "audio"))
	if err != nil {
		return "", err
	}
	return filepath.Rel(projectDir, latest)
}

// hardware encoders in priority order; libx264 is the fallback.
var preferredEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

// GetBestH264Encoder asks ffmpeg which encoders it was built with.
func GetBestH264Encoder(binary string) string {
	if binary == "" {
		binary = "ffmpeg"
	}
	out, err := exec.Command(binary, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range preferredEncoders {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// ResolveEncoder turns the configured encoder name into a concrete one.
func ResolveEncoder(binary, configured string) string {
	if configured == "" || configured == "auto" {
		return GetBestH264Encoder(binary)
	}
	return configured
}
