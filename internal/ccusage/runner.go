package ccusage

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Output is what a finished process produced.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner starts a process and waits for it. A non-nil error means the process
// could not be started; a non-zero exit is reported through Output.ExitCode.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (Output, error)
}

// Strategy is one way of invoking ccusage, e.g. a global install or npx.
type Strategy struct {
	Name    string   `json:"name"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

func (s Strategy) label() string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return strings.TrimSpace(strings.Join(append([]string{s.Command}, s.Args...), " "))
}

// DefaultStrategies tries a global binary first, then the package runners.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "ccusage", Command: "ccusage"},
		{Name: "npx", Command: "npx", Args: []string{"ccusage@latest"}},
		{Name: "bunx", Command: "bunx", Args: []string{"ccusage"}},
	}
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		if out.ExitCode == 0 {
			out.ExitCode = -1
		}
		return out, nil
	}
	return out, err
}
