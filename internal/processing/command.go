package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// killDelay is how long a process gets to react to SIGKILL escalation after
// its deadline before Wait is abandoned.
const killDelay = 5 * time.Second

// runCommand spawns spec.Argv, writes the prompt to stdin, and returns the
// captured stdout. Stderr is captured separately for diagnostics.
func (e *Executor) runCommand(ctx context.Context, spec Spec, prompt string) (string, error) {
	if len(spec.Argv) == 0 {
		return "", fmt.Errorf("command processor has empty argv")
	}

	cmdCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = killDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	// Parent cancellation (shutdown) wins over the deadline diagnosis.
	if ctx.Err() != nil {
		return "", fmt.Errorf("command %q: %w", spec.Argv[0], ctx.Err())
	}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("command %q after %s: %w", spec.Argv[0], spec.Timeout, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
	}
	return "", fmt.Errorf("run command %q: %w", spec.Argv[0], err)
}
