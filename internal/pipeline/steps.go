package pipeline

import (
	"context"

	"github.com/kornfeb/Easy-Auto-Video/internal/engine"
	"github.com/kornfeb/Easy-Auto-Video/internal/video"
)

const (
	StepCoverSelection   = "01_cover_selection"
	StepSubjectDetection = "02_subject_detection"
	StepTimeline         = "03_timeline"
	StepDryRun           = "04_dryrun"
	StepRender           = "05_render"
)

// StepContext is handed to a running step.
type StepContext struct {
	ProjectID string
	// Progress reports completion of the current step as a fraction 0-1.
	Progress func(fraction float64)
}

// Step is one stage of the pipeline. Steps run in order; a failed step
// stops the job.
type Step struct {
	ID    string
	Label string
	Run   func(ctx context.Context, sc StepContext) error
}

// DefaultSteps returns the fixed build pipeline over e.
func DefaultSteps(e *engine.Engine) []Step {
	return []Step{
		{
			ID:    StepCoverSelection,
			Label: "Cover selection",
			Run: func(ctx context.Context, sc StepContext) error {
				_, err := e.SelectCover(ctx, sc.ProjectID)
				return err
			},
		},
		{
			ID:    StepSubjectDetection,
			Label: "Subject detection",
			Run: func(ctx context.Context, sc StepContext) error {
				_, err := e.DetectSubjects(ctx, sc.ProjectID)
				return err
			},
		},
		{
			ID:    StepTimeline,
			Label: "Timeline",
			Run: func(ctx context.Context, sc StepContext) error {
				_, err := e.BuildTimeline(ctx, sc.ProjectID)
				return err
			},
		},
		{
			ID:    StepDryRun,
			Label: "Dry run",
			Run: func(ctx context.Context, sc StepContext) error {
				report, err := e.DryRun(ctx, sc.ProjectID)
				if err != nil {
					return err
				}
				return report.Err()
			},
		},
		{
			ID:    StepRender,
			Label: "Render",
			Run: func(ctx context.Context, sc StepContext) error {
				_, err := e.Render(ctx, sc.ProjectID, func(p video.Progress) {
					sc.Progress(p.Percentage / 100)
				})
				return err
			},
		},
	}
}

// StepIDs lists the ids of steps in order.
func StepIDs(steps []Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}
