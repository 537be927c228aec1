// Package saga runs an ordered list of forward steps across independent
// stores. When a step fails, the compensations of the steps that already
// succeeded run in reverse order before Run returns.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is one forward action and the action that undoes it.
// Undo may be nil for steps with nothing to roll back.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// StepError reports a forward step failure whose compensations all succeeded.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// CompensationError reports a forward step failure where at least one
// compensation failed as well. Compensated lists the steps that were undone.
type CompensationError struct {
	Step        string
	Err         error
	Compensated []string
	Failed      []string
	UndoErr     error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("step %s: %v; compensation of %v failed: %v", e.Step, e.Err, e.Failed, e.UndoErr)
}

func (e *CompensationError) Unwrap() []error { return []error{e.Err, e.UndoErr} }

// Saga is an ordered list of steps. The zero value is ready to use.
type Saga struct {
	steps []Step
}

// Add appends a step and returns the saga for chaining.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes the steps in order. Compensations run with a context that is
// detached from ctx cancellation so a dropped request cannot leave a half
// applied saga behind. Every compensation is attempted even if an earlier
// one fails.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		err := step.Do(ctx)
		if err == nil {
			continue
		}
		return s.compensate(context.WithoutCancel(ctx), i, err)
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, failed int, cause error) error {
	var (
		done     []string
		badSteps []string
		undoErrs []error
	)
	for j := failed - 1; j >= 0; j-- {
		step := s.steps[j]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(ctx); err != nil {
			badSteps = append(badSteps, step.Name)
			undoErrs = append(undoErrs, fmt.Errorf("undo %s: %w", step.Name, err))
			continue
		}
		done = append(done, step.Name)
	}
	name := s.steps[failed].Name
	if len(undoErrs) > 0 {
		return &CompensationError{
			Step:        name,
			Err:         cause,
			Compensated: done,
			Failed:      badSteps,
			UndoErr:     errors.Join(undoErrs...),
		}
	}
	return &StepError{Step: name, Err: cause}
}
