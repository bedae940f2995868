package video

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Progress is one block of ffmpeg -progress output.
type Progress struct {
	Frame      int
	FPS        float64
	Time       string
	Speed      string
	Percentage float64
	Done       bool
}

// streamProgress parses key=value progress blocks; every other line goes to
// logLine. A block ends at its progress= line.
func streamProgress(r io.Reader, total float64, handler func(Progress), logLine func(string)) {
	scanner := bufio.NewScanner(r)
	p := Progress{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			if logLine != nil && line != "" {
				logLine(line)
			}
			continue
		}
		switch key {
		case "frame":
			fmt.Sscanf(value, "%d", &p.Frame)
		case "fps":
			fmt.Sscanf(value, "%f", &p.FPS)
		case "out_time":
			p.Time = value
		case "out_time_us", "out_time_ms":
			// ffmpeg reports microseconds under both keys.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && total > 0 {
				p.Percentage = clampPercent(float64(us) / 1e6 / total * 100)
			}
		case "speed":
			p.Speed = value
		case "progress":
			p.Done = value == "end"
			if p.Done {
				p.Percentage = 100
			}
			if handler != nil {
				handler(p)
			}
			p = Progress{}
		default:
			if logLine != nil && !isProgressKey(key) {
				logLine(line)
			}
		}
	}
}

func isProgressKey(key string) bool {
	switch key {
	case "bitrate", "total_size", "dup_frames", "drop_frames", "stream_0_0_q":
		return true
	}
	return false
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// tail keeps the last n diagnostic lines of the encoder.
type tail struct {
	n     int
	lines []string
}

func newTail(n int) *tail {
	return &tail{n: n}
}

func (t *tail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tail) String() string {
	return strings.Join(t.lines, "\n")
}
