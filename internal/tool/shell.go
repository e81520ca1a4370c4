package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"scaffai/internal/domain"
	"scaffai/internal/metrics"
)

const (
	defaultShellTimeout   = 60
	defaultMaxOutputBytes = 65536
)

// CommandResult is the outcome of a command that was started.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner executes shell command lines through sh -c.
type CommandRunner struct {
	workingDir     string
	timeout        time.Duration
	maxOutputBytes int
}

type ShellConfig struct {
	WorkingDir     string
	TimeoutSeconds int
	MaxOutputBytes int
}

func NewCommandRunner(cfg ShellConfig) *CommandRunner {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultShellTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	return &CommandRunner{
		workingDir:     cfg.WorkingDir,
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxOutputBytes: cfg.MaxOutputBytes,
	}
}

// Run starts command and waits for it. A non-zero exit is reported in the
// result, not as an error; the error is reserved for launch failures,
// timeouts and cancellation.
func (r *CommandRunner) Run(ctx context.Context, command string) (CommandResult, error) {
	dir := r.workingDir
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = absDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Background children may hold the pipes open after sh is killed.
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	res := CommandResult{
		Stdout: r.truncate(stdout.String()),
		Stderr: r.truncate(stderr.String()),
	}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("command timed out after %s", r.timeout)
		}
		return res, fmt.Errorf("command cancelled: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

func (r *CommandRunner) truncate(s string) string {
	if r.maxOutputBytes > 0 && len(s) > r.maxOutputBytes {
		n := r.maxOutputBytes
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "\n... (output truncated)"
	}
	return s
}

// RunCommandTool exposes the runner to the agent, optionally behind a guard.
type RunCommandTool struct {
	runner *CommandRunner
	guard  domain.CommandGuard
	logger *slog.Logger
}

func NewRunCommandTool(runner *CommandRunner, guard domain.CommandGuard, logger *slog.Logger) *RunCommandTool {
	return &RunCommandTool{runner: runner, guard: guard, logger: logger}
}

func (t *RunCommandTool) Name() string { return "run_command" }

func (t *RunCommandTool) Description() string {
	return "Run a shell command. Input should be the command to run"
}

func (t *RunCommandTool) Parameters() map[string]any {
	return InputParameters("The shell command to run (e.g. 'go mod tidy', 'ls -la')", true)
}

func (t *RunCommandTool) Execute(ctx context.Context, input string) domain.ToolResult {
	command := strings.TrimSpace(input)
	if command == "" {
		return domain.Fail(domain.ResultInvalidInput, "Failed to run command: empty command", nil)
	}

	if t.guard != nil {
		action, err := t.guard.Check(ctx, t.Name(), command)
		if err != nil {
			return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to run command: %s", err), err)
		}
		switch action {
		case domain.ActionBlock:
			metrics.SecurityBlocks.Inc()
			return domain.Fail(domain.ResultBlocked, fmt.Sprintf("Command blocked by policy: %s", command), nil)
		case domain.ActionConfirm:
			ok, err := t.guard.RequestConfirmation(ctx, t.Name(), command)
			if err != nil {
				return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to run command: %s", err), err)
			}
			if !ok {
				metrics.SecurityBlocks.Inc()
				return domain.Fail(domain.ResultBlocked, fmt.Sprintf("Command declined by user: %s", command), nil)
			}
		}
	}

	res, err := t.runner.Run(ctx, command)
	if err != nil {
		return domain.Fail(domain.ResultExecFailed, fmt.Sprintf("Failed to run command: %s", err), err)
	}
	t.logger.Debug("command finished", "command", command, "exit", res.ExitCode)
	if res.ExitCode != 0 {
		return domain.Fail(domain.ResultExecFailed, "Command failed with error:\n"+res.Stderr,
			fmt.Errorf("exit status %d", res.ExitCode))
	}
	return domain.OK("Command executed successfully:\n" + res.Stdout)
}
