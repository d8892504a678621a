package updater

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/repository/dpkg"
)

var errBoom = errors.New("boom")

// fakeHost implements Host with fixed answers.
type fakeHost struct {
	// privileged is returned by IsPrivileged.
	privileged bool
	// distribution is returned by DistributionID.
	distribution string
	// err is returned by DistributionID.
	err error
}

func (h *fakeHost) IsPrivileged() bool { return h.privileged }

func (h *fakeHost) DistributionID() (string, error) { return h.distribution, h.err }

// fakePackages implements dpkg.Repository in memory.
type fakePackages struct {
	// version is the raw installed version; empty means not installed.
	version string
	// queryErr is returned by InstalledVersion when set.
	queryErr error
	// installErr is returned by Install when set.
	installErr error
	// versionAfterInstall replaces version after a successful Install.
	versionAfterInstall string
	// queries counts InstalledVersion calls.
	queries int
	// installed records archive paths passed to Install.
	installed []string
	// contents records the archive content seen at install time.
	contents []string
	// dirModes records the permissions of the archive's directory at install time.
	dirModes []os.FileMode
}

var _ dpkg.Repository = (*fakePackages)(nil)

func (p *fakePackages) InstalledVersion(context.Context, string) (string, error) {
	p.queries++

	if p.queryErr != nil {
		return "", p.queryErr
	}

	if p.version == "" {
		return "", dpkg.ErrNotInstalled
	}

	return p.version, nil
}

func (p *fakePackages) Install(_ context.Context, archivePath string) error {
	p.installed = append(p.installed, archivePath)

	if data, err := os.ReadFile(archivePath); err == nil {
		p.contents = append(p.contents, string(data))
	}

	if info, err := os.Stat(filepath.Dir(archivePath)); err == nil {
		p.dirModes = append(p.dirModes, info.Mode().Perm())
	}

	if p.installErr == nil && p.versionAfterInstall != "" {
		p.version = p.versionAfterInstall
	}

	return p.installErr
}

// fakeFeed implements ReleaseFeed.
type fakeFeed struct {
	// releases are returned in order.
	releases []release.Release
	// err is returned when set.
	err error
	// calls counts ListReleases calls.
	calls int
}

func (f *fakeFeed) ListReleases(context.Context) ([]release.Release, error) {
	f.calls++

	return f.releases, f.err
}

// fakeSource implements ArtifactSource from an in-memory body.
type fakeSource struct {
	// body is served for every URL.
	body string
	// err is returned when set.
	err error
	// opened records requested URLs.
	opened []string
}

func (s *fakeSource) OpenAsset(_ context.Context, assetURL string) (io.ReadCloser, error) {
	s.opened = append(s.opened, assetURL)

	if s.err != nil {
		return nil, s.err
	}

	return io.NopCloser(strings.NewReader(s.body)), nil
}

// fakeInstaller implements ArtifactInstaller and records calls.
type fakeInstaller struct {
	// err is returned when set.
	err error
	// calls records the simulate flag of every call.
	calls []bool
}

func (i *fakeInstaller) Install(_ context.Context, _ release.Asset, simulate bool) error {
	i.calls = append(i.calls, simulate)

	return i.err
}

// fakeGuard implements InstallGuard.
type fakeGuard struct {
	// err is returned by Check.
	err error
	// checks counts Check calls.
	checks int
}

func (g *fakeGuard) Check() error {
	g.checks++

	return g.err
}

func betaRelease(tag string) release.Release {
	return release.Release{
		Tag:          tag,
		IsPrerelease: true,
		Assets: []release.Asset{{
			Name:        "emby-server-deb_" + tag + "_amd64.deb",
			DownloadURL: "https://example.com/download/" + tag + "/emby-server-deb_" + tag + "_amd64.deb",
		}},
	}
}

func embyFilter() release.Filter {
	return release.NewFilter("emby-server-deb", "amd64.deb")
}
