package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/logger"
	"github.com/oshokin/emby-beta-updater/internal/repository/dpkg"
)

// Probe reads the installed version of the target package. It never caches:
// every call queries the package database again.
type Probe struct {
	// packages is the local package database.
	packages dpkg.Repository
	// packageName is the package to look up.
	packageName string
}

// NewProbe creates a probe for packageName.
func NewProbe(packages dpkg.Repository, packageName string) *Probe {
	return &Probe{
		packages:    packages,
		packageName: packageName,
	}
}

// Probe returns the parsed installed version.
// The error wraps ErrNotInstalled, ErrProbeFailure or ErrMalformedVersion.
func (p *Probe) Probe(ctx context.Context) (release.Version, error) {
	logger.DebugKV(ctx, "Checking installed version", "package", p.packageName)

	raw, err := p.packages.InstalledVersion(ctx, p.packageName)

	switch {
	case errors.Is(err, dpkg.ErrNotInstalled):
		return release.Version{}, err
	case err != nil:
		return release.Version{}, fmt.Errorf("%w: %w", ErrProbeFailure, err)
	}

	installed, err := release.ParseVersion(raw)
	if err != nil {
		return release.Version{}, fmt.Errorf("installed %s: %w", p.packageName, err)
	}

	return installed, nil
}
