package updater

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/emby-beta-updater/internal/api/github"
	"github.com/oshokin/emby-beta-updater/internal/config"
	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/host"
	"github.com/oshokin/emby-beta-updater/internal/logger"
	"github.com/oshokin/emby-beta-updater/internal/repository/dpkg"
	"github.com/oshokin/emby-beta-updater/internal/version"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Simulate runs the whole decision without downloading or installing.
	Simulate bool
}

// Run loads the configuration, wires the collaborators and performs one update run.
// The returned error is the outcome's failure, nil for both up-to-date and updated runs.
func Run(ctx context.Context, opts *Options) (*Outcome, error) {
	ctx = logger.WithName(ctx, version.Name)
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.ErrorKV(ctx, "Could not load configuration", "error", err)

		return nil, fmt.Errorf("load configuration: %w", err)
	}

	applyLogLevel(cfg, opts.Simulate)

	logger.InfoKV(ctx, "Emby beta updater started",
		"version", version.Short(), "package", cfg.PackageName, "simulate", opts.Simulate)

	orchestrator, err := newOrchestratorFromConfig(cfg, opts.Simulate)
	if err != nil {
		logger.ErrorKV(ctx, "Could not initialise updater", "error", err)

		return nil, err
	}

	outcome := orchestrator.Run(ctx)

	return outcome, outcome.Err
}

// applyLogLevel forces debug output in simulation mode and honours log_level otherwise.
func applyLogLevel(cfg *config.Config, simulate bool) {
	if simulate {
		logger.SetLevel(zapcore.DebugLevel)

		return
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}
}

// newOrchestratorFromConfig builds the production collaborators.
func newOrchestratorFromConfig(cfg *config.Config, simulate bool) (*Orchestrator, error) {
	feed, err := github.NewClient(cfg.FeedURL,
		github.WithCallTimeout(cfg.HTTPTimeout),
		github.WithDownloadTimeout(cfg.DownloadTimeout),
		github.WithToken(cfg.GitHubToken),
		github.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("create release feed client: %w", err)
	}

	packages := dpkg.NewCommandRepository(dpkg.WithInstallTimeout(cfg.InstallTimeout))

	deps := Dependencies{
		Host:      new(host.System),
		Probe:     NewProbe(packages, cfg.PackageName),
		Locator:   NewLocator(feed, release.NewFilter(cfg.AssetMarker, cfg.AssetArch)),
		Installer: NewInstaller(feed, packages, cfg.DownloadDir),
		Guard:     NewGuard(executableName(), nil),
	}

	return NewOrchestrator(deps, simulate), nil
}

// executableName is the path of the running binary, falling back to its canonical name.
func executableName() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}

	return version.Name
}

// isSupportedDistribution accepts the Debian-family hosts dpkg artifacts are built for.
func isSupportedDistribution(id string) bool {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "debian", "ubuntu":
		return true
	default:
		return false
	}
}
