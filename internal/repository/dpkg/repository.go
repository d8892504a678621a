package dpkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/emby-beta-updater/internal/logger"
)

const (
	// DefaultBinary is the package manager executable.
	DefaultBinary = "dpkg"

	// DefaultQueryTimeout bounds `dpkg -l`.
	DefaultQueryTimeout = 30 * time.Second

	// DefaultInstallTimeout bounds `dpkg -i`, which runs maintainer scripts.
	DefaultInstallTimeout = 15 * time.Minute

	// listingNoMatchExitCode is what `dpkg -l` returns when no package matches the pattern.
	listingNoMatchExitCode = 1

	// stderrTailLimit caps how much command stderr ends up in an error message.
	stderrTailLimit = 512
)

// Repository reads and changes the local package database.
type Repository interface {
	// InstalledVersion returns the raw version string of an installed package.
	InstalledVersion(ctx context.Context, packageName string) (string, error)
	// Install installs a local package archive.
	Install(ctx context.Context, archivePath string) error
}

// CommandFunc runs an external command and returns its standard output.
// A command that ran but exited non-zero must be reported as *ExitError.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	// Command is the command line that was executed.
	Command string
	// Code is the exit status.
	Code int
	// Stderr is the tail of the standard error stream.
	Stderr string
}

// Error implements error.
func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	}

	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, e.Stderr)
}

// CommandRepository implements Repository on top of the dpkg command line tools.
type CommandRepository struct {
	// binary is the dpkg executable name or path.
	binary string
	// run executes commands; exec-based by default.
	run CommandFunc
	// queryTimeout bounds listing queries.
	queryTimeout time.Duration
	// installTimeout bounds installs.
	installTimeout time.Duration
}

// Option configures a CommandRepository.
type Option func(*CommandRepository)

// WithCommandFunc replaces the command runner.
func WithCommandFunc(run CommandFunc) Option {
	return func(r *CommandRepository) {
		if run != nil {
			r.run = run
		}
	}
}

// WithBinary sets the dpkg executable.
func WithBinary(binary string) Option {
	return func(r *CommandRepository) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// WithInstallTimeout bounds the duration of `dpkg -i`.
func WithInstallTimeout(timeout time.Duration) Option {
	return func(r *CommandRepository) {
		if timeout > 0 {
			r.installTimeout = timeout
		}
	}
}

// NewCommandRepository returns a repository that shells out to dpkg.
func NewCommandRepository(opts ...Option) *CommandRepository {
	r := &CommandRepository{
		binary:         DefaultBinary,
		run:            runCommand,
		queryTimeout:   DefaultQueryTimeout,
		installTimeout: DefaultInstallTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// InstalledVersion runs `dpkg -l <package>` and parses its output.
// A listing without an installed row yields ErrNotInstalled; failing to run
// dpkg at all is returned as is.
func (r *CommandRepository) InstalledVersion(ctx context.Context, packageName string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	output, err := r.run(cmdCtx, r.binary, "-l", packageName)
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != listingNoMatchExitCode {
			return "", fmt.Errorf("query package %s: %w", packageName, err)
		}

		logger.DebugKV(ctx, "Package listing found no match", "package", packageName, "error", err)
	}

	version, err := ParseListing(output, packageName)
	if err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Installed package found", "package", packageName, "version", version)

	return version, nil
}

// Install runs `dpkg -i <archive>`.
func (r *CommandRepository) Install(ctx context.Context, archivePath string) error {
	cmdCtx, cancel := context.WithTimeout(ctx, r.installTimeout)
	defer cancel()

	output, err := r.run(cmdCtx, r.binary, "-i", archivePath)
	if len(output) > 0 {
		logger.DebugKV(ctx, "Package manager output", "output", strings.TrimSpace(string(output)))
	}

	if err != nil {
		return fmt.Errorf("install %s: %w", archivePath, err)
	}

	return nil
}

// runCommand is the default CommandFunc based on os/exec.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	//nolint:gosec // The binary and its arguments come from configuration, not from the feed.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), &ExitError{
			Command: strings.Join(append([]string{name}, args...), " "),
			Code:    exitErr.ExitCode(),
			Stderr:  tail(strings.TrimSpace(stderr.String()), stderrTailLimit),
		}
	}

	return stdout.Bytes(), err
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return "..." + s[len(s)-limit:]
}
