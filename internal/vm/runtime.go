package vm

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// Runtime provides the interface between the VM and the outside world.
type Runtime interface {
	// Stdout receives everything the program prints.
	Stdout() io.Writer

	// Stdin is read by readline and gets.
	Stdin() io.Reader

	// Exit records the status main returned.
	Exit(code int)

	// ExitCode returns the exit code set by Exit, or -1 if not set.
	ExitCode() int

	// Exited returns true if Exit was called.
	Exited() bool
}

// DefaultRuntime implements Runtime using OS facilities.
type DefaultRuntime struct {
	exitCode int
	exited   bool
}

// NewDefaultRuntime creates a runtime bound to the process streams.
func NewDefaultRuntime() *DefaultRuntime {
	return &DefaultRuntime{exitCode: -1}
}

func (r *DefaultRuntime) Stdout() io.Writer {
	return os.Stdout
}

func (r *DefaultRuntime) Stdin() io.Reader {
	return os.Stdin
}

func (r *DefaultRuntime) Exit(code int) {
	r.exitCode = code
	r.exited = true
}

func (r *DefaultRuntime) ExitCode() int {
	return r.exitCode
}

func (r *DefaultRuntime) Exited() bool {
	return r.exited
}

// TestRuntime implements Runtime with controlled inputs for testing.
type TestRuntime struct {
	stdin    *strings.Reader
	out      bytes.Buffer
	exitCode int
	exited   bool
}

// NewTestRuntime creates a test runtime reading stdin from the given text.
func NewTestRuntime(stdin string) *TestRuntime {
	return &TestRuntime{
		stdin:    strings.NewReader(stdin),
		exitCode: -1,
	}
}

func (r *TestRuntime) Stdout() io.Writer {
	return &r.out
}

func (r *TestRuntime) Stdin() io.Reader {
	return r.stdin
}

// Output returns everything printed so far.
func (r *TestRuntime) Output() string {
	return r.out.String()
}

func (r *TestRuntime) Exit(code int) {
	r.exitCode = code
	r.exited = true
}

func (r *TestRuntime) ExitCode() int {
	return r.exitCode
}

func (r *TestRuntime) Exited() bool {
	return r.exited
}
