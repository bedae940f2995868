package system

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo is the subset of ffprobe output the pipeline uses.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Probe runs ffprobe on path.
func Probe(path string) (*MediaInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe([]byte(out))
}

func parseProbe(data []byte) (*MediaInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.Width, info.Height = s.Width, s.Height
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
			if info.Duration == 0 {
				if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
					info.Duration = d
				}
			}
		}
	}
	return info, nil
}

// GetAudioDuration returns the duration of an audio file in seconds.
func GetAudioDuration(path string) (float64, error) {
	info, err := Probe(path)
	if err != nil {
		return 0, err
	}
	if !info.HasAudio {
		return 0, fmt.Errorf("%s has no audio stream", path)
	}
	return info.Duration, nil
}
