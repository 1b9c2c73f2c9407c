package usecase

import (
	"context"
	"errors"
	"fmt"

	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/metrics"
	"go-freelance-backend/pkg/security"
)

// Step is one write of a multi-path workflow. Compensate undoes Do and may be
// nil for steps that need no undo.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs its steps in order. When a step fails, the steps that already
// completed are compensated in reverse order.
type Saga struct {
	Name     string
	Steps    []Step
	Attempts int
}

// WorkflowError reports which step of a saga failed and whether rolling back
// succeeded.
type WorkflowError struct {
	Workflow        string
	Step            string
	Cause           error
	CompensationErr error
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("%s: step %s failed: %v", e.Workflow, e.Step, e.Cause)
	if e.CompensationErr != nil {
		msg += fmt.Sprintf(" (compensation failed: %v)", e.CompensationErr)
	}
	return msg
}

func (e *WorkflowError) Unwrap() []error {
	if e.CompensationErr != nil {
		return []error{e.Cause, e.CompensationErr}
	}
	return []error{e.Cause}
}

func (s Saga) Run(ctx context.Context) error {
	done := make([]Step, 0, len(s.Steps))
	for _, step := range s.Steps {
		if err := s.attempt(ctx, step); err != nil {
			werr := &WorkflowError{Workflow: s.Name, Step: step.Name, Cause: err}
			werr.CompensationErr = compensate(ctx, done)

			result := "compensated"
			if werr.CompensationErr != nil {
				result = "compensation_failed"
				logger.Log.Error("Workflow compensation failed", "workflow", s.Name, "step", step.Name, "error", werr.CompensationErr)
				security.DefaultLogger().Log(ctx, security.SecurityEvent{
					Event:   security.EventWorkflowRollback,
					Details: map[string]any{"workflow": s.Name, "step": step.Name, "error": werr.Error()},
				})
			} else {
				logger.Log.Warn("Workflow rolled back", "workflow", s.Name, "step", step.Name, "error", err)
			}
			metrics.IncrementWorkflowOutcome(s.Name, result)
			return werr
		}
		done = append(done, step)
	}

	metrics.IncrementWorkflowOutcome(s.Name, "success")
	return nil
}

// attempt retries transient failures. Business errors (AppError) are final.
func (s Saga) attempt(ctx context.Context, step Step) error {
	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = step.Do(ctx); err == nil {
			return nil
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) || ctx.Err() != nil {
			return err
		}
		logger.Log.Debug("Workflow step failed", "workflow", s.Name, "step", step.Name, "attempt", i+1, "error", err)
	}
	return err
}

func compensate(ctx context.Context, done []Step) error {
	// Compensations must run even if the request context was cancelled.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
