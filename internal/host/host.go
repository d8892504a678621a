package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// DefaultOSReleasePaths are read in order; the second is the systemd fallback.
//
//nolint:gochecknoglobals // Read-only list of well-known locations.
var DefaultOSReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// ErrNoDistributionID is returned when no os-release file names the distribution.
var ErrNoDistributionID = errors.New("distribution id not found")

// System inspects the running host.
type System struct {
	// OSReleasePaths overrides DefaultOSReleasePaths when set.
	OSReleasePaths []string
	// EffectiveUID overrides os.Geteuid when set.
	EffectiveUID func() int
}

// IsPrivileged reports whether the process runs as root.
func (s *System) IsPrivileged() bool {
	uid := os.Geteuid
	if s.EffectiveUID != nil {
		uid = s.EffectiveUID
	}

	return uid() == 0
}

// DistributionID returns the lower-cased ID field of os-release, e.g. "debian".
func (s *System) DistributionID() (string, error) {
	paths := s.OSReleasePaths
	if len(paths) == 0 {
		paths = DefaultOSReleasePaths
	}

	var lastErr error

	for _, path := range paths {
		id, err := readDistributionID(path)
		if err == nil {
			return id, nil
		}

		lastErr = err
	}

	return "", lastErr
}

func readDistributionID(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open os-release: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	fields, err := ParseOSRelease(f)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	id := strings.ToLower(strings.TrimSpace(fields["ID"]))
	if id == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoDistributionID)
	}

	return id, nil
}

// ParseOSRelease reads KEY=value pairs in os-release(5) syntax.
func ParseOSRelease(r io.Reader) (map[string]string, error) {
	env, err := gotenv.StrictParse(r)
	if err != nil {
		return nil, err
	}

	return env, nil
}
