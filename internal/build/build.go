// Package build runs a package's native build tool through the staged
// configure, compile, test and install pipeline.
package build

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names one step of the pipeline. The name doubles as the log file
// stem in the working directory.
type Stage string

const (
	Configure Stage = "configure"
	Compile   Stage = "compile"
	Test      Stage = "test"
	Install   Stage = "install"
)

// Stage failure sentinels.
var (
	ErrConfigureFailed = errors.New("configure failed")
	ErrCompileFailed   = errors.New("compile failed")
	ErrTestFailed      = errors.New("test failed")
	ErrInstallFailed   = errors.New("install failed")
)

func (s Stage) sentinel() error {
	switch s {
	case Configure:
		return ErrConfigureFailed
	case Compile:
		return ErrCompileFailed
	case Test:
		return ErrTestFailed
	case Install:
		return ErrInstallFailed
	default:
		return fmt.Errorf("%s failed", s)
	}
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    Stage
	ExitCode int
	LogPath  string
	Skipped  bool
}

// StageError reports a failed stage. ExitCode is the build tool's own
// status, unmodified.
type StageError struct {
	Stage   Stage
	Code    int
	LogPath string
	Tail    []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage exited with status %d (log: %s)", e.Stage, e.Code, e.LogPath)
}

func (e *StageError) Unwrap() error {
	return e.Stage.sentinel()
}

// ExitCode is the status the process should exit with.
func (e *StageError) ExitCode() int {
	return e.Code
}

// TestPolicy decides what a failing test stage does to the pipeline.
type TestPolicy string

const (
	// TestAbort fails the pipeline when tests fail.
	TestAbort TestPolicy = "abort"
	// TestContinue logs the failure and proceeds to install.
	TestContinue TestPolicy = "continue"
)

// ParseTestPolicy accepts "abort" or "continue"; empty means continue.
func ParseTestPolicy(s string) (TestPolicy, error) {
	switch TestPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TestContinue:
		return TestContinue, nil
	case TestAbort:
		return TestAbort, nil
	default:
		return "", fmt.Errorf("invalid test policy '%s' — must be 'abort' or 'continue'", s)
	}
}
