package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when a plugin runs longer than the executor allows.
var ErrTimeout = errors.New("hook execution timeout")

// Executor runs hook plugins with a per-call timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills plugins after timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute sends ev to plugin on stdin and parses its stdout as a Response.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, ev *Event) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if err != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("hook execution failed: %w, stderr: %s", err, msg)
		}
		return nil, fmt.Errorf("hook execution failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &response, nil
}
