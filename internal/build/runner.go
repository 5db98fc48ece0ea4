package build

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// TailLines is how many log lines a StageError carries.
const TailLines = 20

// exitNotFound mirrors the shell's status for a missing command.
const exitNotFound = 127

// Runner executes stage commands in a source directory, sending each
// stage's combined output to <LogDir>/<stage>.log.
type Runner struct {
	Dir    string
	LogDir string
	Env    []string
	Logger *log.Logger
}

// Run executes argv as stage. A non-zero exit yields a *StageError.
func (r *Runner) Run(ctx context.Context, stage Stage, argv []string) (StageResult, error) {
	res := StageResult{Stage: stage, LogPath: filepath.Join(r.LogDir, string(stage)+".log")}
	if len(argv) == 0 {
		res.Skipped = true
		return res, nil
	}

	logFile, err := os.OpenFile(res.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return res, fmt.Errorf("creating %s log: %w", stage, err)
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "+ %s\n", strings.Join(argv, " "))

	name, err := r.lookPath(argv[0])
	if err != nil {
		fmt.Fprintf(logFile, "%v\n", err)
		res.ExitCode = exitNotFound
		return res, r.failure(res)
	}

	cmd := exec.CommandContext(ctx, name, argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	r.logger().Info("running stage", "stage", stage, "cmd", argv[0], "log", res.LogPath)
	err = cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(logFile, "%v\n", err)
			res.ExitCode = exitNotFound
			return res, r.failure(res)
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
		return res, r.failure(res)
	}
	return res, nil
}

func (r *Runner) failure(res StageResult) error {
	tail, _ := Tail(res.LogPath, TailLines)
	return &StageError{Stage: res.Stage, Code: res.ExitCode, LogPath: res.LogPath, Tail: tail}
}

// lookPath resolves name against the runner's PATH rather than the
// caller's. Names containing a separator are used as given.
func (r *Runner) lookPath(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	path, ok := Lookup(r.Env, "PATH")
	if !ok {
		path = DefaultPath
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: command not found in PATH %s", name, path)
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Tail returns the last n lines of the file at path.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			ring = append(ring[1:], sc.Text())
			continue
		}
		ring = append(ring, sc.Text())
	}
	return ring, sc.Err()
}
