package ccusage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrToolInvocation = errors.New("ccusage could not be started")
	ErrToolExecution  = errors.New("ccusage exited with an error")
	ErrResponseParse  = errors.New("ccusage output not recognized")
)

// InvocationError means no strategy could spawn the tool. Not retried
// automatically; the host shows an install hint.
type InvocationError struct {
	Err error
}

func (e *InvocationError) Error() string {
	if e.Err == nil {
		return ErrToolInvocation.Error()
	}
	return fmt.Sprintf("%v: %v", ErrToolInvocation, e.Err)
}

func (e *InvocationError) Is(target error) bool { return target == ErrToolInvocation }

func (e *InvocationError) Unwrap() error { return e.Err }

// ExecutionError means the tool ran but exited non-zero.
type ExecutionError struct {
	Strategy string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%v (%s, exit %d)", ErrToolExecution, e.Strategy, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExecutionError) Is(target error) bool { return target == ErrToolExecution }

// ParseError means stdout matched none of the known response shapes.
type ParseError struct {
	Payload string
}

func (e *ParseError) Error() string {
	if strings.TrimSpace(e.Payload) == "" {
		return ErrResponseParse.Error() + ": empty output"
	}
	return fmt.Sprintf("%v (%d bytes)", ErrResponseParse, len(e.Payload))
}

func (e *ParseError) Is(target error) bool { return target == ErrResponseParse }
