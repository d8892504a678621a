package updater

import (
	"errors"
	"fmt"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/repository/dpkg"
)

// Failure classes of a run. Lower layers wrap their causes with these so that
// errors.Is tells the class apart from the details.
var (
	ErrPrivilegeDenied = errors.New("root privileges required")
	ErrUnsupportedOS   = errors.New("unsupported operating system")
	ErrProbeFailure    = errors.New("package manager query failed")
	ErrFetchFailure    = errors.New("release feed unavailable")
	ErrDownloadFailure = errors.New("artifact download failed")
	ErrInstallFailure  = errors.New("package installation failed")

	// ErrNotInstalled, ErrMalformedVersion and ErrNoEligibleRelease come from the
	// layers that detect them and are re-exported for callers of this package.
	ErrNotInstalled      = dpkg.ErrNotInstalled
	ErrMalformedVersion  = release.ErrMalformedVersion
	ErrNoEligibleRelease = release.ErrNoEligibleRelease
)

// reasons maps failure classes to the names used in logs, most specific first.
//
//nolint:gochecknoglobals // Static lookup table.
var reasons = []struct {
	err  error
	name string
}{
	{ErrPrivilegeDenied, "privilege_denied"},
	{ErrUnsupportedOS, "unsupported_os"},
	{ErrNotInstalled, "not_installed"},
	{ErrProbeFailure, "probe_failure"},
	{ErrMalformedVersion, "malformed_version"},
	{ErrFetchFailure, "fetch_failure"},
	{ErrNoEligibleRelease, "no_eligible_release"},
	{ErrDownloadFailure, "download_failure"},
	{ErrInstallFailure, "install_failure"},
}

// Reason returns the failure class name of err, "unknown" if none applies.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}

	return "unknown"
}

// Failure records the state in which a run stopped and why.
type Failure struct {
	// State is the last state reached before the failure.
	State State
	// Err is the classified cause.
	Err error
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s after %s: %v", Reason(f.Err), f.State, f.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (f *Failure) Unwrap() error {
	return f.Err
}
