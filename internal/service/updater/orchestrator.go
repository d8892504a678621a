package updater

import (
	"context"
	"fmt"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/logger"
)

// State is a step of the update workflow. A run only moves forward.
type State string

// Workflow states; UpToDate, Updated and Failed are terminal.
const (
	StateStart          State = "start"
	StateOSVerified     State = "os_verified"
	StateVersionProbed  State = "version_probed"
	StateReleaseLocated State = "release_located"
	StateDecisionMade   State = "decision_made"
	StateUpToDate       State = "up_to_date"
	StateUpdated        State = "updated"
	StateFailed         State = "failed"
)

// Host answers the preconditions checked before any other step.
type Host interface {
	IsPrivileged() bool
	DistributionID() (string, error)
}

// VersionProber returns the installed version of the target package.
type VersionProber interface {
	Probe(ctx context.Context) (release.Version, error)
}

// ReleaseLocator returns the newest beta and its artifact.
type ReleaseLocator interface {
	FindLatestBeta(ctx context.Context) (*release.Candidate, error)
}

// ArtifactInstaller installs an artifact or simulates doing so.
type ArtifactInstaller interface {
	Install(ctx context.Context, asset release.Asset, simulate bool) error
}

// InstallGuard refuses an install while something else holds the package manager.
type InstallGuard interface {
	Check() error
}

// Dependencies are the collaborators of an Orchestrator. Guard is optional.
type Dependencies struct {
	Host      Host
	Probe     VersionProber
	Locator   ReleaseLocator
	Installer ArtifactInstaller
	Guard     InstallGuard
}

// Outcome summarises a finished run.
type Outcome struct {
	// State is terminal: StateUpToDate, StateUpdated or StateFailed.
	State State
	// Decision is set once both versions were compared.
	Decision release.Decision
	// Installed is the version found before the run.
	Installed release.Version
	// Latest is the newest beta found in the feed.
	Latest release.Version
	// DownloadURL is the artifact of Latest.
	DownloadURL string
	// Simulated is true when no side effects were performed.
	Simulated bool
	// Err is a *Failure when State is StateFailed.
	Err error
}

// Orchestrator runs the linear update workflow with early exit on failure.
type Orchestrator struct {
	deps     Dependencies
	simulate bool
}

// NewOrchestrator creates an orchestrator. With simulate set the installer
// only reports its steps and the install guard is skipped.
func NewOrchestrator(deps Dependencies, simulate bool) *Orchestrator {
	return &Orchestrator{
		deps:     deps,
		simulate: simulate,
	}
}

// Run performs a single update decision and, when warranted, the install.
// It never retries and never exits the process; the caller maps the outcome to an exit code.
func (o *Orchestrator) Run(ctx context.Context) *Outcome {
	outcome := &Outcome{
		State:     StateStart,
		Simulated: o.simulate,
	}

	if o.simulate {
		logger.Info(ctx, "Simulation mode: nothing will be downloaded or installed")
	}

	if !o.deps.Host.IsPrivileged() {
		return o.fail(ctx, outcome, ErrPrivilegeDenied)
	}

	logger.Debug(ctx, "Root privileges confirmed")

	if err := o.verifyOS(ctx); err != nil {
		return o.fail(ctx, outcome, err)
	}

	outcome.State = StateOSVerified

	installed, err := o.deps.Probe.Probe(ctx)
	if err != nil {
		return o.fail(ctx, outcome, err)
	}

	outcome.Installed = installed
	outcome.State = StateVersionProbed
	logger.InfoKV(ctx, "Installed version", "version", installed.String())

	candidate, err := o.deps.Locator.FindLatestBeta(ctx)
	if err != nil {
		return o.fail(ctx, outcome, err)
	}

	outcome.Latest = candidate.Version
	outcome.DownloadURL = candidate.Asset.DownloadURL
	outcome.State = StateReleaseLocated
	logger.InfoKV(ctx, "Latest beta version", "version", candidate.Version.String())

	outcome.Decision = release.Decide(installed, candidate.Version)
	outcome.State = StateDecisionMade

	if outcome.Decision == release.DecisionUpToDate {
		outcome.State = StateUpToDate
		logger.InfoKV(ctx, "Already up to date, no update required",
			"installed", installed.String(), "latest", candidate.Version.String())

		return outcome
	}

	logger.InfoKV(ctx, "A newer beta is available, starting update",
		"from", installed.String(), "to", candidate.Version.String())

	if err = o.install(ctx, candidate.Asset); err != nil {
		return o.fail(ctx, outcome, err)
	}

	outcome.State = StateUpdated

	if o.simulate {
		logger.Infof(ctx, "Simulated update from %s to %s", installed, candidate.Version)
	} else {
		logger.Infof(ctx, "Updated from %s to %s", installed, candidate.Version)
	}

	return outcome
}

// verifyOS accepts only the supported Debian-family distributions.
func (o *Orchestrator) verifyOS(ctx context.Context) error {
	id, err := o.deps.Host.DistributionID()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedOS, err)
	}

	if !isSupportedDistribution(id) {
		return fmt.Errorf("%w: %s (only debian and ubuntu are supported)", ErrUnsupportedOS, id)
	}

	logger.InfoKV(ctx, "Detected operating system", "distribution", id)

	return nil
}

// install checks the guard unless simulating, then hands over to the installer.
func (o *Orchestrator) install(ctx context.Context, asset release.Asset) error {
	if !o.simulate && o.deps.Guard != nil {
		if err := o.deps.Guard.Check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInstallFailure, err)
		}
	}

	return o.deps.Installer.Install(ctx, asset, o.simulate)
}

// fail moves the outcome to StateFailed and logs the single terminal error line.
func (o *Orchestrator) fail(ctx context.Context, outcome *Outcome, err error) *Outcome {
	failure := &Failure{
		State: outcome.State,
		Err:   err,
	}

	logger.ErrorKV(ctx, "Update run failed",
		"state", string(failure.State), "reason", Reason(err), "error", err)

	outcome.State = StateFailed
	outcome.Err = failure

	return outcome
}
