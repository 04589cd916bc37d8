// Package validate checks a generated tree after assembly: a
// compile-only Maven pass when the host has Maven, plus static checks
// that need no toolchain. Findings are surfaced on the run summary and
// never block packaging.
package validate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"springforge/internal/config"
)

// Report is the outcome of validating a generated tree.
type Report struct {
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Passed     bool          `json:"passed"`
	Errors     []string      `json:"errors,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Output     string        `json:"output,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
}

// Maven invokes the host's Maven binary for a compile-only pass.
type Maven struct {
	Bin     string
	Timeout time.Duration
}

// NewMaven builds a runner; empty bin falls back to "mvn" and a
// non-positive timeout to the config default.
func NewMaven(bin string, timeout time.Duration) *Maven {
	if bin == "" {
		bin = "mvn"
	}
	if timeout <= 0 {
		timeout = config.DefaultMavenTimeout
	}
	return &Maven{Bin: bin, Timeout: timeout}
}

// lookPath and runMaven are injectable in tests.
var (
	lookPath = exec.LookPath

	runMaven = func(ctx context.Context, bin, dir string, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, bin, args...)
		cmd.Dir = dir
		return cmd.CombinedOutput()
	}
)

// Compile runs `mvn -q clean compile` in dir. A missing binary is not
// an error: the host simply cannot compile-check, and the report says
// so. A non-zero exit is reported through Errors, never as a Go error.
func (m *Maven) Compile(ctx context.Context, dir string) Report {
	bin := m.Bin
	if bin == "" {
		bin = "mvn"
	}
	if _, err := lookPath(bin); err != nil {
		return Report{Skipped: true, SkipReason: fmt.Sprintf("%s not found on PATH", bin)}
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = config.DefaultMavenTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := runMaven(cctx, bin, dir, "-q", "clean", "compile")
	rep := Report{Output: string(out), Duration: time.Since(start)}
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		rep.Errors = []string{fmt.Sprintf("compile aborted after %s", timeout)}
	case err != nil:
		rep.Errors = CompileErrors(rep.Output)
	default:
		rep.Passed = true
	}
	return rep
}

// Check runs the static sweep and the Maven compile and merges both
// into one report. Static findings land in Warnings; they never fail
// the report on their own.
func Check(ctx context.Context, m *Maven, dir string) Report {
	warnings, err := Static(dir)
	rep := m.Compile(ctx, dir)
	rep.Warnings = warnings
	if err != nil {
		rep.Warnings = append(rep.Warnings, "static checks incomplete: "+err.Error())
	}
	return rep
}

// CompileErrors pulls the [ERROR] lines out of Maven output. When the
// output carries no [ERROR] marker (wrapper scripts, truncated logs)
// the tail is returned instead so the user still sees something
// actionable.
func CompileErrors(output string) []string {
	var errs []string
	for _, line := range strings.Split(output, "\n") {
		if line := strings.TrimSpace(line); strings.HasPrefix(line, "[ERROR]") {
			errs = append(errs, line)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return tailLines(output, 20)
}

func tailLines(s string, n int) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line := strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
