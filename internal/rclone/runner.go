// Package rclone drives the rclone binary: listing remotes and directories,
// and copying staged files with live byte progress.
package rclone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/logging"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "rclone"

var (
	// ErrListingFailed is returned when rclone exits non-zero while listing.
	ErrListingFailed = errors.New("rclone listing failed")

	// ErrToolFailed is wrapped by every *ToolError.
	ErrToolFailed = errors.New("rclone failed")
)

// ToolError reports a non-zero rclone exit.
type ToolError struct {
	ExitCode int
	Tail     []string // last stderr lines
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("rclone exited with code %d", e.ExitCode)
}

// Unwrap lets errors.Is match ErrToolFailed.
func (e *ToolError) Unwrap() error {
	return ErrToolFailed
}

// Runner executes rclone subcommands.
type Runner struct {
	Binary   string
	BaseArgs []string // inserted before every subcommand
	Env      []string // appended to the inherited environment
	logger   *logging.Logger
}

// NewRunner creates a runner for binary (DefaultBinary when empty).
func NewRunner(binary string, logger *logging.Logger) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{Binary: binary, logger: logger}
}

func (r *Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	full := make([]string, 0, len(r.BaseArgs)+len(args))
	full = append(full, r.BaseArgs...)
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, r.Binary, full...)
	cmd.WaitDelay = constants.ToolWaitDelay
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	r.logger.Debug().Str("binary", r.Binary).Strs("args", args).Msg("running rclone")
	return cmd
}

// output runs a short-lived subcommand and returns its stdout.
func (r *Runner) output(ctx context.Context, args ...string) (string, error) {
	cmd := r.command(ctx, args...)
	var stdout bytes.Buffer
	stderr := newTailBuffer()
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", toolError(err, stderr.Lines())
	}
	return stdout.String(), nil
}

// ListRemotes returns the remote names defined in configPath, without the
// trailing colon.
func (r *Runner) ListRemotes(ctx context.Context, configPath string) ([]string, error) {
	out, err := r.output(ctx, "listremotes", "--config", configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	var remotes []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSuffix(strings.TrimSpace(line), ":")
		if name != "" {
			remotes = append(remotes, name)
		}
	}
	return remotes, nil
}

// ListDirs returns the immediate subdirectory names of remote:path.
func (r *Runner) ListDirs(ctx context.Context, configPath, remote, path string) ([]string, error) {
	out, err := r.output(ctx, "lsf", Target(remote, path), "--dirs-only", "--config", configPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrListingFailed, Target(remote, path), err)
	}

	var dirs []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSuffix(strings.TrimSpace(line), "/")
		if name != "" {
			dirs = append(dirs, name)
		}
	}
	return dirs, nil
}

// CopyRequest describes one single-file copy.
type CopyRequest struct {
	ConfigPath string
	Source     string // local staged file
	Remote     string
	Path       string // destination directory on the remote
}

// Destination returns "remote:path/<file name>".
func (req CopyRequest) Destination() string {
	return Target(req.Remote, JoinPath(req.Path, filepath.Base(req.Source)))
}

// Copy runs `rclone copyto` for one file and calls onStats for every byte
// progress line, in order, from a single goroutine. A cancelled ctx kills the
// child and Copy returns ctx.Err().
func (r *Runner) Copy(ctx context.Context, req CopyRequest, onStats func(Stats)) error {
	cmd := r.command(ctx, "copyto", req.Source, req.Destination(),
		"--config", req.ConfigPath,
		"--progress",
		"--stats", "1s",
		"-v",
	)

	stdout := &lineWriter{fn: func(line string) {
		if s, ok := ParseStats(line); ok && onStats != nil {
			onStats(s)
		}
	}}
	stderr := newTailBuffer()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.Flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return toolError(err, stderr.Lines())
	}
	return nil
}

// Target formats "remote:path".
func Target(remote, path string) string {
	return remote + ":" + path
}

// ParseTarget splits "remote:path". A bare name is a remote root.
func ParseTarget(s string) (remote, path string, err error) {
	remote, path, _ = strings.Cut(strings.TrimSpace(s), ":")
	if remote == "" {
		return "", "", fmt.Errorf("invalid target %q: expected remote:path", s)
	}
	return remote, strings.Trim(path, "/"), nil
}

// JoinPath appends name to a remote directory path.
func JoinPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func toolError(err error, tail []string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{ExitCode: exitErr.ExitCode(), Tail: tail}
	}
	// binary missing or not executable
	return fmt.Errorf("failed to run rclone: %w", err)
}
