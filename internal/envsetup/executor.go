package envsetup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// stderrTail bounds how much tool output a StepError carries.
const stderrTail = 4096

type Command struct {
	Args   []string
	Dir    string
	Env    *Environ
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Executor runs one external command to completion.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError is returned by executors when a command ran and failed.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

type OSExecutor struct{}

func (OSExecutor) Run(ctx context.Context, c Command) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("empty command")
	}
	env := c.Env
	if env == nil {
		env = EnvironFromOS()
	}
	bin, ok := env.LookPath(c.Args[0])
	if !ok {
		return fmt.Errorf("%s: %w", c.Args[0], exec.ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, bin, c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = env.Slice()
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout

	var tail tailBuffer
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(c.Stderr, &tail)
	} else {
		cmd.Stderr = &tail
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(tail.String())}
	}
	return err
}

// tailBuffer keeps the last stderrTail bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - stderrTail; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
