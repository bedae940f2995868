package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/logging"
	"github.com/kornfeb/Easy-Auto-Video/internal/project"
)

type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

const maxJobLogs = 200

var ErrNoJob = errors.New("no job for project")

// Job is a snapshot of one pipeline run.
type Job struct {
	ID         string        `json:"job_id"`
	ProjectID  string        `json:"project_id"`
	State      JobState      `json:"status"`
	Step       string        `json:"current_step,omitempty"`
	Progress   float64       `json:"progress"`
	Logs       []string      `json:"logs"`
	Error      *apperr.Error `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Running reports whether the job has not finished yet.
func (j Job) Running() bool {
	return j.State == JobRunning
}

type job struct {
	mu        sync.Mutex
	status    Job
	cancelled atomic.Bool
	done      chan struct{}
}

func (j *job) snapshot() Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Logs = append([]string(nil), j.status.Logs...)
	return s
}

func (j *job) logf(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	j.status.Logs = append(j.status.Logs, line)
	if n := len(j.status.Logs); n > maxJobLogs {
		j.status.Logs = j.status.Logs[n-maxJobLogs:]
	}
}

func (j *job) update(fn func(*Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.status)
}

func (j *job) finish(state JobState, err *apperr.Error) {
	now := time.Now().UTC()
	j.update(func(s *Job) {
		s.State = state
		s.Error = err
		s.FinishedAt = &now
		if state == JobCompleted {
			s.Progress = 100
		}
	})
}

// Options tune one run.
type Options struct {
	// Force reruns steps that already left a done marker.
	Force bool
}

// Runner executes the step list for projects, one job per project at a
// time. Cancellation is checked between steps; a running step is never
// interrupted.
type Runner struct {
	Store  *project.Store
	Steps  []Step
	Logger zerolog.Logger

	// ProjectLogger opens the log of one project. Defaults to
	// logging.ForProject.
	ProjectLogger func(projectDir string) (zerolog.Logger, io.Closer, error)

	mu   sync.Mutex
	jobs map[string]*job
}

func NewRunner(store *project.Store, steps []Step, logger zerolog.Logger) *Runner {
	return &Runner{
		Store:         store,
		Steps:         steps,
		Logger:        logger,
		ProjectLogger: logging.ForProject,
		jobs:          map[string]*job{},
	}
}

// Start launches a job for projectID in the background. ctx bounds the
// job's steps and must outlive the caller when started from a request.
func (r *Runner) Start(ctx context.Context, projectID string, opts Options) (Job, error) {
	rec, err := r.Store.Load(projectID)
	if err != nil {
		return Job{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs == nil {
		r.jobs = map[string]*job{}
	}
	if prev, ok := r.jobs[projectID]; ok && prev.snapshot().Running() {
		return Job{}, apperr.ErrJobRunning
	}

	j := &job{
		done: make(chan struct{}),
		status: Job{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			State:     JobRunning,
			Logs:      []string{},
			StartedAt: time.Now().UTC(),
		},
	}
	r.jobs[projectID] = j
	go r.run(ctx, j, rec.Status, opts)
	return j.snapshot(), nil
}

// Run starts a job and waits for it.
func (r *Runner) Run(ctx context.Context, projectID string, opts Options) (Job, error) {
	if _, err := r.Start(ctx, projectID, opts); err != nil {
		return Job{}, err
	}
	return r.Wait(ctx, projectID)
}

// Wait blocks until the current job of projectID finishes.
func (r *Runner) Wait(ctx context.Context, projectID string) (Job, error) {
	j, ok := r.job(projectID)
	if !ok {
		return Job{}, ErrNoJob
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

// Status returns the latest job of projectID.
func (r *Runner) Status(projectID string) (Job, bool) {
	j, ok := r.job(projectID)
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}

// Cancel asks the running job of projectID to stop before its next step.
func (r *Runner) Cancel(projectID string) error {
	j, ok := r.job(projectID)
	if !ok || !j.snapshot().Running() {
		return ErrNoJob
	}
	j.cancelled.Store(true)
	j.logf("cancellation requested")
	return nil
}

func (r *Runner) job(projectID string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[projectID]
	return j, ok
}

func (r *Runner) run(ctx context.Context, j *job, prevStatus project.Status, opts Options) {
	defer close(j.done)
	id := j.status.ProjectID

	paths, err := r.Store.Paths(id)
	if err != nil {
		j.finish(JobFailed, apperr.From(err))
		return
	}
	logger, closer, err := r.ProjectLogger(paths.Dir)
	if err != nil {
		r.Logger.Warn().Err(err).Str("project", id).Msg("project log unavailable")
		logger = r.Logger
	}
	if closer != nil {
		defer closer.Close()
	}
	logger = logger.With().Str("job", j.status.ID).Logger()
	ctx = logger.WithContext(ctx)

	if prevStatus == project.StatusRunning || prevStatus == "" {
		prevStatus = project.StatusInitialized
	}
	r.setStatus(logger, id, project.StatusRunning)
	logger.Info().Bool("force", opts.Force).Msg("pipeline started")
	j.logf("pipeline started")

	total := len(r.Steps)
	for i, step := range r.Steps {
		if j.cancelled.Load() {
			j.logf("cancelled before %s", step.ID)
			logger.Warn().Str("step", step.ID).Msg("pipeline cancelled")
			r.setStatus(logger, id, project.StatusCancelled)
			j.finish(JobCancelled, apperr.ErrCancelled)
			return
		}
		if err := ctx.Err(); err != nil {
			r.setStatus(logger, id, project.StatusCancelled)
			j.finish(JobCancelled, apperr.ErrCancelled.WithDetail(err.Error()))
			return
		}

		rec, err := r.Store.Load(id)
		if err != nil {
			r.setStatus(logger, id, project.StatusFailed)
			j.finish(JobFailed, apperr.From(err))
			return
		}

		j.update(func(s *Job) {
			s.Step = step.ID
			s.Progress = percent(i, 0, total)
		})
		if rec.StepDisabled(step.ID) {
			j.logf("%s disabled, skipped", step.ID)
			continue
		}
		if !opts.Force && paths.IsDone(step.ID) {
			j.logf("%s already done, skipped", step.ID)
			continue
		}

		j.logf("%s started", step.ID)
		stepLog := logger.With().Str("step", step.ID).Logger()
		stepLog.Info().Msg("step started")
		if err := r.Store.SetStep(id, step.ID, project.StatusRunning, nil); err != nil {
			stepLog.Warn().Err(err).Msg("record step state")
		}

		started := time.Now()
		err = step.Run(stepLog.WithContext(ctx), StepContext{
			ProjectID: id,
			Progress: func(f float64) {
				j.update(func(s *Job) { s.Progress = percent(i, f, total) })
			},
		})
		if err != nil {
			ae := apperr.From(err)
			stepLog.Error().Err(err).Bool("recoverable", ae.Recoverable).Msg("step failed")
			j.logf("%s failed: %s", step.ID, ae.Message)
			if err := r.Store.SetStep(id, step.ID, project.StatusFailed, ae); err != nil {
				stepLog.Warn().Err(err).Msg("record step state")
			}
			if ae.Recoverable {
				r.setStatus(logger, id, prevStatus)
			} else {
				r.setStatus(logger, id, project.StatusFailed)
			}
			j.finish(JobFailed, ae)
			return
		}

		if err := paths.MarkDone(step.ID); err != nil {
			stepLog.Warn().Err(err).Msg("write done marker")
		}
		if err := r.Store.SetStep(id, step.ID, project.StatusCompleted, nil); err != nil {
			stepLog.Warn().Err(err).Msg("record step state")
		}
		stepLog.Info().Dur("elapsed", time.Since(started)).Msg("step completed")
		j.logf("%s completed", step.ID)
	}

	r.setStatus(logger, id, project.StatusCompleted)
	logger.Info().Msg("pipeline completed")
	j.logf("pipeline completed")
	j.finish(JobCompleted, nil)
}

func (r *Runner) setStatus(logger zerolog.Logger, id string, status project.Status) {
	if err := r.Store.SetStatus(id, status); err != nil {
		logger.Warn().Err(err).Str("status", string(status)).Msg("record project status")
	}
}

func percent(step int, fraction float64, total int) float64 {
	if total == 0 {
		return 100
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return (float64(step) + fraction) / float64(total) * 100
}
