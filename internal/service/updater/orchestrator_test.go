package updater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
)

// testRig wires real Probe and Locator over fakes so the whole decision path is exercised.
type testRig struct {
	host      *fakeHost
	packages  *fakePackages
	feed      *fakeFeed
	installer *fakeInstaller
	guard     *fakeGuard
}

func newTestRig(installed string, releases ...release.Release) *testRig {
	return &testRig{
		host:      &fakeHost{privileged: true, distribution: "debian"},
		packages:  &fakePackages{version: installed},
		feed:      &fakeFeed{releases: releases},
		installer: new(fakeInstaller),
		guard:     new(fakeGuard),
	}
}

func (r *testRig) orchestrator(simulate bool) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Host:      r.host,
		Probe:     NewProbe(r.packages, "emby-server"),
		Locator:   NewLocator(r.feed, embyFilter()),
		Installer: r.installer,
		Guard:     r.guard,
	}, simulate)
}

// requireFailure asserts a failed outcome of the given class at the given state.
func requireFailure(t *testing.T, outcome *Outcome, state State, class error) {
	t.Helper()

	require.Equal(t, StateFailed, outcome.State)
	require.ErrorIs(t, outcome.Err, class)

	var failure *Failure

	require.ErrorAs(t, outcome.Err, &failure)
	require.Equal(t, state, failure.State)
}

// TestRunUpdatesOlderInstall installs when the beta is newer.
func TestRunUpdatesOlderInstall(t *testing.T) {
	t.Parallel()

	rig := newTestRig("4.7.0.30", betaRelease("4.7.0.42"))

	outcome := rig.orchestrator(false).Run(context.Background())
	require.NoError(t, outcome.Err)
	require.Equal(t, StateUpdated, outcome.State)
	require.Equal(t, release.DecisionUpdateAvailable, outcome.Decision)
	require.Equal(t, "4.7.0.30", outcome.Installed.String())
	require.Equal(t, "4.7.0.42", outcome.Latest.String())
	require.Contains(t, outcome.DownloadURL, "emby-server-deb_4.7.0.42_amd64.deb")
	require.Equal(t, []bool{false}, rig.installer.calls)
	require.Equal(t, 1, rig.guard.checks)
}

// TestRunUpToDate does nothing when the installed version is the same or newer.
func TestRunUpToDate(t *testing.T) {
	t.Parallel()

	for _, installed := range []string{"4.8.0.0", "4.7.0.42"} {
		rig := newTestRig(installed, betaRelease("4.7.0.42"))

		outcome := rig.orchestrator(false).Run(context.Background())
		require.NoError(t, outcome.Err)
		require.Equal(t, StateUpToDate, outcome.State)
		require.Equal(t, release.DecisionUpToDate, outcome.Decision)
		require.Empty(t, rig.installer.calls)
		require.Zero(t, rig.guard.checks)
	}
}

// TestRunIsIdempotent yields UpToDate twice in a row without side effects.
func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	rig := newTestRig("4.9.0.42", betaRelease("4.9.0.42"))
	o := rig.orchestrator(false)

	for range 2 {
		outcome := o.Run(context.Background())
		require.Equal(t, StateUpToDate, outcome.State)
	}

	require.Empty(t, rig.installer.calls)
	require.Equal(t, 2, rig.packages.queries)
	require.Equal(t, 2, rig.feed.calls)
}

// TestRunSimulationReachesUpdated keeps the control flow of a real run without the guard.
func TestRunSimulationReachesUpdated(t *testing.T) {
	t.Parallel()

	rig := newTestRig("4.7.0.30", betaRelease("4.7.0.42"))
	rig.guard.err = errBoom

	outcome := rig.orchestrator(true).Run(context.Background())
	require.NoError(t, outcome.Err)
	require.Equal(t, StateUpdated, outcome.State)
	require.True(t, outcome.Simulated)
	require.Equal(t, []bool{true}, rig.installer.calls)
	require.Zero(t, rig.guard.checks)
}

// TestRunPreconditions stops before any probe or network call.
func TestRunPreconditions(t *testing.T) {
	t.Parallel()

	rig := newTestRig("4.7.0.30", betaRelease("4.7.0.42"))
	rig.host.privileged = false

	outcome := rig.orchestrator(false).Run(context.Background())
	requireFailure(t, outcome, StateStart, ErrPrivilegeDenied)
	require.Zero(t, rig.packages.queries)
	require.Zero(t, rig.feed.calls)

	for _, host := range []*fakeHost{
		{privileged: true, distribution: "fedora"},
		{privileged: true, err: errBoom},
	} {
		rig = newTestRig("4.7.0.30", betaRelease("4.7.0.42"))
		rig.host = host

		outcome = rig.orchestrator(false).Run(context.Background())
		requireFailure(t, outcome, StateStart, ErrUnsupportedOS)
		require.Zero(t, rig.packages.queries)
		require.Zero(t, rig.feed.calls)
	}

	rig = newTestRig("4.7.0.30", betaRelease("4.7.0.42"))
	rig.host.distribution = "Ubuntu"

	require.Equal(t, StateUpdated, rig.orchestrator(false).Run(context.Background()).State)
}

// TestRunProbeFailures never reaches the feed when the installed version is unknown.
func TestRunProbeFailures(t *testing.T) {
	t.Parallel()

	cases := map[error]*fakePackages{
		ErrNotInstalled:     {},
		ErrProbeFailure:     {queryErr: errBoom},
		ErrMalformedVersion: {version: "4.8.x"},
	}

	for class, packages := range cases {
		rig := newTestRig("", betaRelease("4.7.0.42"))
		rig.packages = packages

		outcome := rig.orchestrator(false).Run(context.Background())
		requireFailure(t, outcome, StateOSVerified, class)
		require.Zero(t, rig.feed.calls)
	}
}

// TestRunLocatorFailures stops before comparing or installing.
func TestRunLocatorFailures(t *testing.T) {
	t.Parallel()

	rig := newTestRig("4.7.0.30", release.Release{Tag: "4.8.0.80"})

	outcome := rig.orchestrator(false).Run(context.Background())
	requireFailure(t, outcome, StateVersionProbed, ErrNoEligibleRelease)
	require.True(t, outcome.Latest.IsZero())
	require.Empty(t, rig.installer.calls)

	rig = newTestRig("4.7.0.30")
	rig.feed.err = errBoom

	outcome = rig.orchestrator(false).Run(context.Background())
	requireFailure(t, outcome, StateVersionProbed, ErrFetchFailure)

	rig = newTestRig("4.7.0.30", betaRelease("next"))

	outcome = rig.orchestrator(false).Run(context.Background())
	requireFailure(t, outcome, StateVersionProbed, ErrMalformedVersion)
}

// TestRunInstallFailures reports installer errors and a busy package manager.
func TestRunInstallFailures(t *testing.T) {
	t.Parallel()

	rig := newTestRig("4.7.0.30", betaRelease("4.7.0.42"))
	rig.installer.err = ErrDownloadFailure

	outcome := rig.orchestrator(false).Run(context.Background())
	requireFailure(t, outcome, StateDecisionMade, ErrDownloadFailure)

	rig = newTestRig("4.7.0.30", betaRelease("4.7.0.42"))
	rig.guard.err = errPackageManagerBusy

	outcome = rig.orchestrator(false).Run(context.Background())
	requireFailure(t, outcome, StateDecisionMade, ErrInstallFailure)
	require.ErrorIs(t, outcome.Err, errPackageManagerBusy)
	require.Empty(t, rig.installer.calls)
}

// TestRunWithRealInstaller drives the orchestrator end to end over the disk.
func TestRunWithRealInstaller(t *testing.T) {
	t.Parallel()

	packages := &fakePackages{version: "4.7.0.30", versionAfterInstall: "4.7.0.42"}
	feed := &fakeFeed{releases: []release.Release{betaRelease("4.7.0.42")}}
	deps := Dependencies{
		Host:      &fakeHost{privileged: true, distribution: "ubuntu"},
		Probe:     NewProbe(packages, "emby-server"),
		Locator:   NewLocator(feed, embyFilter()),
		Installer: NewInstaller(&fakeSource{body: "deb"}, packages, t.TempDir()),
	}

	o := NewOrchestrator(deps, false)

	require.Equal(t, StateUpdated, o.Run(context.Background()).State)
	require.Len(t, packages.installed, 1)

	// The second run sees the freshly installed version.
	require.Equal(t, StateUpToDate, o.Run(context.Background()).State)
	require.Len(t, packages.installed, 1)
}
