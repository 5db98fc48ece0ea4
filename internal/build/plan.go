package build

import (
	"context"
	"errors"
)

// State is the pipeline's position.
type State string

const (
	Configuring State = "configuring"
	Compiling   State = "compiling"
	Testing     State = "testing"
	Installing  State = "installing"
	Done        State = "done"
	Failed      State = "failed"
)

// Plan holds the rendered argv for each stage. An empty argv skips that
// stage.
type Plan struct {
	Configure []string
	Compile   []string
	Test      []string
	Install   []string

	RunTests   bool
	TestPolicy TestPolicy

	// NoInstall stops after testing, for callers that only want the
	// test suite's verdict.
	NoInstall bool
}

// Execution records what a plan run did.
type Execution struct {
	State   State
	Results []StageResult

	// TestFailure is set when tests failed under the continue policy.
	TestFailure *StageError
}

// Execute walks the stages in order. Any stage failure ends the run in
// Failed, except a test failure under TestContinue.
func (p *Plan) Execute(ctx context.Context, r *Runner) (*Execution, error) {
	run := &Execution{State: Configuring}

	steps := []struct {
		state State
		stage Stage
		argv  []string
	}{
		{Configuring, Configure, p.Configure},
		{Compiling, Compile, p.Compile},
		{Testing, Test, p.Test},
		{Installing, Install, p.Install},
	}

	for _, step := range steps {
		if step.stage == Test && !p.RunTests {
			continue
		}
		if step.stage == Install && p.NoInstall {
			break
		}
		if err := ctx.Err(); err != nil {
			run.State = Failed
			return run, err
		}

		run.State = step.state
		res, err := r.Run(ctx, step.stage, step.argv)
		run.Results = append(run.Results, res)
		if err == nil {
			continue
		}

		var stageErr *StageError
		if step.stage == Test && p.TestPolicy != TestAbort && errors.As(err, &stageErr) {
			r.logger().Warn("tests failed, continuing", "exit", stageErr.Code, "log", stageErr.LogPath)
			run.TestFailure = stageErr
			continue
		}
		run.State = Failed
		return run, err
	}

	run.State = Done
	return run, nil
}
