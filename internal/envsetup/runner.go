package envsetup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"chatrelay/internal/safeio"

	"go.uber.org/zap"
)

// StepError reports the step that aborted a run together with the failing
// tool's own exit code and stderr.
type StepError struct {
	Step     string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %s failed", e.Step)
	if e.Command != "" {
		fmt.Fprintf(&b, ": %s", e.Command)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\n%s", e.Stderr)
	}
	return b.String()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// RunContext is shared by all steps of one run.
type RunContext struct {
	Config Config
	Env    *Environ
	Exec   Executor
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
	// Files confines manifest and lock access to Config.WorkDir. Opened on
	// first use when nil.
	Files *safeio.FS
}

func (rc *RunContext) files() (*safeio.FS, error) {
	if rc.Files == nil {
		files, err := safeio.New(rc.Config.WorkDir)
		if err != nil {
			return nil, fmt.Errorf("work dir: %w", err)
		}
		rc.Files = files
	}
	return rc.Files, nil
}

// run executes args in the run's environment and working directory.
func (rc *RunContext) run(ctx context.Context, args []string, stdout io.Writer) error {
	return rc.Exec.Run(ctx, Command{
		Args:   args,
		Dir:    rc.Config.WorkDir,
		Env:    rc.Env,
		Stdin:  rc.Stdin,
		Stdout: stdout,
		Stderr: rc.Stderr,
	})
}

type Runner struct {
	rc     *RunContext
	dryRun bool
}

type RunnerOption func(*Runner)

func WithDryRun(dry bool) RunnerOption {
	return func(r *Runner) { r.dryRun = dry }
}

func NewRunner(rc *RunContext, opts ...RunnerOption) *Runner {
	if rc.Exec == nil {
		rc.Exec = OSExecutor{}
	}
	if rc.Env == nil {
		rc.Env = EnvironFromOS()
	}
	if rc.Logger == nil {
		rc.Logger = zap.NewNop()
	}
	if rc.Stdout == nil {
		rc.Stdout = io.Discard
	}
	if rc.Stderr == nil {
		rc.Stderr = io.Discard
	}
	r := &Runner{rc: rc}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes steps strictly in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	log := r.rc.Logger
	for i, step := range steps {
		fields := []zap.Field{
			zap.Int("index", i+1),
			zap.Int("total", len(steps)),
			zap.String("step", step.Name),
		}
		if r.dryRun {
			fmt.Fprintf(r.rc.Stdout, "%d. %-14s %s\n", i+1, step.Name, step.Describe())
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.Skip != nil {
			if skip, reason := step.Skip(r.rc); skip {
				log.Info("step skipped", append(fields, zap.String("reason", reason))...)
				continue
			}
		}
		log.Info("step started", fields...)
		if err := r.runStep(ctx, step); err != nil {
			log.Error("step failed", append(fields, zap.Error(err))...)
			return err
		}
		log.Info("step finished", fields...)
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	var err error
	if step.Do != nil {
		err = step.Do(ctx, r.rc)
	} else {
		err = r.rc.run(ctx, step.Args, r.rc.Stdout)
	}
	if err == nil {
		return nil
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return err
	}
	out := &StepError{Step: step.Name, Command: strings.Join(step.Args, " "), Err: err}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.Code
		out.Stderr = exitErr.Stderr
	}
	return out
}
