package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/phonecase-tools/lister/internal/config"
)

var ErrUnknownStage = errors.New("unknown stage")

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Runner runs stages one after another. A failing stage is logged and the next
// one still runs.
type Runner struct {
	stages []Stage
	now    func() time.Time
}

func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages, now: time.Now}
}

// Names lists the stage names in run order.
func (r *Runner) Names() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name()
	}
	return names
}

// Index returns the position of the named stage. An empty name is the first stage.
func (r *Runner) Index(name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	for i, s := range r.stages {
		if s.Name() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w %q, want one of %v", ErrUnknownStage, name, r.Names())
}

// Run executes the stages starting at from.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, from string) (*Report, error) {
	start, err := r.Index(from)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Started:   r.now(),
		Artifacts: &Artifacts{},
	}
	slog.Info("Pipeline started", "run", report.RunID, "stages", r.Names()[start:])

	for i, s := range r.stages {
		sr := StageReport{Name: s.Name()}
		switch {
		case i < start:
			sr.Status = StatusSkipped
		case ctx.Err() != nil:
			sr.Status = StatusSkipped
			sr.Error = ctx.Err().Error()
		default:
			began := r.now()
			slog.Info("Stage started", "stage", s.Name())
			res, err := runStage(ctx, s, cfg, report.Artifacts)
			sr.Duration = r.now().Sub(began).Round(time.Millisecond).String()
			if err != nil {
				sr.Status = StatusFailed
				sr.Error = err.Error()
				slog.Error("Stage failed, continuing", "stage", s.Name(), "err", err, "duration", sr.Duration)
			} else {
				sr.Status = StatusOK
				sr.Result = res
				slog.Info("Stage finished", "stage", s.Name(), "duration", sr.Duration)
			}
		}
		report.Stages = append(report.Stages, sr)
	}

	report.Finished = r.now()
	slog.Info("Pipeline finished",
		"run", report.RunID,
		"failed", report.Failed(),
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond).String(),
	)
	return report, nil
}

func runStage(ctx context.Context, s Stage, cfg *config.Config, artifacts *Artifacts) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Debug("Stage panic", "stage", s.Name(), "stack", string(debug.Stack()))
			err = fmt.Errorf("stage %s panicked: %v", s.Name(), p)
		}
	}()
	res, err = s.Run(ctx, cfg, artifacts)
	if err == nil && res == nil {
		res = &Result{}
	}
	return res, err
}
