// Package runner abstracts external process execution so the pipeline can be
// exercised in tests without spawning real model processes.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner executes a single external process and reports its exit status.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs processes via os/exec with a fixed working directory.
type ExecRunner struct {
	// Dir is the working directory for every invocation. Empty means the
	// caller's current directory.
	Dir string
}

const stderrTailLimit = 2048

// Run blocks until the process exits. On non-zero exit the tail of stderr is
// folded into the returned error for upstream detail.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = io.Discard

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > stderrTailLimit {
			tail = tail[len(tail)-stderrTailLimit:]
		}
		if tail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, tail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
