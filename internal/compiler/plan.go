package compiler

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

type AssemblyKind string

const (
	AssemblyConcat    AssemblyKind = "concat"
	AssemblyCrossfade AssemblyKind = "crossfade"
)

// Plan is the composition graph handed to the encoder.
type Plan struct {
	Width    int         `json:"width" yaml:"width"`
	Height   int         `json:"height" yaml:"height"`
	FPS      int         `json:"fps" yaml:"fps"`
	Duration float64     `json:"duration" yaml:"duration"`
	Segments []SegmentOp `json:"segments" yaml:"segments"`
	Assembly Assembly    `json:"assembly" yaml:"assembly"`
	Audio    *AudioTrack `json:"audio,omitempty" yaml:"audio,omitempty"`
	Warnings []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// SegmentOp is the visual operation of one timeline segment.
type SegmentOp struct {
	Index        int             `json:"index" yaml:"index"`
	Input        string          `json:"input" yaml:"input"`
	IsVideo      bool            `json:"is_video" yaml:"is_video"`
	Start        float64         `json:"start" yaml:"start"`
	BaseDuration float64         `json:"base_duration" yaml:"base_duration"`
	LeadPad      float64         `json:"lead_pad" yaml:"lead_pad"`
	TailPad      float64         `json:"tail_pad" yaml:"tail_pad"`
	Duration     float64         `json:"duration" yaml:"duration"`
	Frames       int             `json:"frames" yaml:"frames"`
	FPS          int             `json:"fps" yaml:"fps"`
	Motion       timeline.Motion `json:"motion" yaml:"motion"`
	Crop         *region.Rect    `json:"crop,omitempty" yaml:"crop,omitempty"`
	Filter       string          `json:"filter" yaml:"filter"`
}

// Assembly joins the segment streams into one.
type Assembly struct {
	Kind       AssemblyKind `json:"kind" yaml:"kind"`
	Transition string       `json:"transition,omitempty" yaml:"transition,omitempty"`
	Seams      []Seam       `json:"seams,omitempty" yaml:"seams,omitempty"`
}

// Seam is one cross-fade between op Left and op Left+1.
type Seam struct {
	Left     int     `json:"left" yaml:"left"`
	Offset   float64 `json:"offset" yaml:"offset"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// AudioTrack is trimmed or padded to exactly Duration, never stretched.
type AudioTrack struct {
	Path     string  `json:"path" yaml:"path"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// WritePlan writes a plan to a YAML file
func WritePlan(plan *Plan, path string) error {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadPlan reads a plan from a YAML file
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
