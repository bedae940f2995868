package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Paths is the on-disk layout of one project.
type Paths struct {
	Dir string
}

const (
	InputDir  = "input"
	AudioDir  = "audio"
	OutputDir = "output"
	LogDir    = "log"
	StateDir  = "state"

	OutputVideoName = "final_video.mp4"
)

func (p Paths) Subdirs() []string {
	return []string{p.Input(), p.Audio(), p.Output(), p.Log(), p.State()}
}

func (p Paths) Input() string  { return filepath.Join(p.Dir, InputDir) }
func (p Paths) Audio() string  { return filepath.Join(p.Dir, AudioDir) }
func (p Paths) Output() string { return filepath.Join(p.Dir, OutputDir) }
func (p Paths) Log() string    { return filepath.Join(p.Dir, LogDir) }
func (p Paths) State() string  { return filepath.Join(p.Dir, StateDir) }

func (p Paths) ProjectJSON() string  { return filepath.Join(p.Dir, "project.json") }
func (p Paths) Crops() string        { return filepath.Join(p.Input(), "crops.json") }
func (p Paths) Timeline() string     { return filepath.Join(p.Dir, "timeline.json") }
func (p Paths) DryRunReport() string { return filepath.Join(p.Dir, "dry_run_report.json") }
func (p Paths) RenderPlan() string   { return filepath.Join(p.Dir, "render_plan.yaml") }
func (p Paths) CoverSource() string  { return filepath.Join(p.Dir, "cover_source.jpg") }
func (p Paths) Cover() string        { return filepath.Join(p.Dir, "cover.jpg") }
func (p Paths) OutputVideo() string  { return filepath.Join(p.Output(), OutputVideoName) }

// Ref turns an absolute path inside the project into the project-relative
// reference stored in timelines.
func (p Paths) Ref(path string) (string, error) {
	rel, err := filepath.Rel(p.Dir, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Resolve turns a project-relative reference into a path.
func (p Paths) Resolve(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(p.Dir, filepath.FromSlash(ref))
}

// Exists reports whether a project-relative reference is a regular file.
func (p Paths) Exists(ref string) bool {
	fi, err := os.Stat(p.Resolve(ref))
	return err == nil && !fi.IsDir()
}

func (p Paths) marker(step string) string {
	return filepath.Join(p.State(), step+".done")
}

// MarkDone leaves a completion marker for step.
func (p Paths) MarkDone(step string) error {
	if err := os.MkdirAll(p.State(), 0755); err != nil {
		return err
	}
	body := fmt.Sprintf("Completed at %s\n", time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(p.marker(step), []byte(body), 0644)
}

func (p Paths) IsDone(step string) bool {
	_, err := os.Stat(p.marker(step))
	return err == nil
}

// ClearDone removes the marker; a missing marker is not an error.
func (p Paths) ClearDone(step string) error {
	err := os.Remove(p.marker(step))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
