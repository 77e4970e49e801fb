package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StepFunc performs one startup step.
type StepFunc func(ctx context.Context) error

// Step is a named startup step.
type Step struct {
	Name string
	Run  StepFunc
}

// StepResult records the outcome of a step that was run.
type StepResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Pipeline runs startup steps in order and stops at the first failure.
type Pipeline struct {
	steps  []Step
	logger *zap.SugaredLogger
}

// NewPipeline creates a pipeline of the given steps.
func NewPipeline(logger *zap.SugaredLogger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{
		steps:  append([]Step(nil), steps...),
		logger: logger,
	}
}

// Add appends a step.
func (p *Pipeline) Add(name string, run StepFunc) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, Run: run})
	return p
}

// Names returns the step names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes the steps in order. It returns the results of every step
// that ran, the failing one last, and that step's error wrapped with its name.
// Steps after a failure, or after ctx is done, do not run.
func (p *Pipeline) Run(ctx context.Context) ([]StepResult, error) {
	results := make([]StepResult, 0, len(p.steps))

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("step %q: %w", step.Name, err)
		}

		start := time.Now()
		err := step.Run(ctx)
		result := StepResult{Name: step.Name, Duration: time.Since(start), Err: err}
		results = append(results, result)

		if err != nil {
			p.logger.Errorw("Startup step failed",
				"step", step.Name,
				"duration", result.Duration,
				"error", err)
			return results, fmt.Errorf("step %q: %w", step.Name, err)
		}

		p.logger.Debugw("Startup step completed",
			"step", step.Name,
			"duration", result.Duration)
	}

	return results, nil
}
