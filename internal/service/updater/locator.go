package updater

import (
	"context"
	"fmt"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/logger"
)

// ReleaseFeed lists upstream releases, newest first.
type ReleaseFeed interface {
	ListReleases(ctx context.Context) ([]release.Release, error)
}

// Locator finds the newest beta and its installable artifact.
type Locator struct {
	// feed is the remote release list.
	feed ReleaseFeed
	// filter picks the artifact among the assets.
	filter release.Filter
}

// NewLocator creates a locator over feed using filter for asset selection.
func NewLocator(feed ReleaseFeed, filter release.Filter) *Locator {
	return &Locator{
		feed:   feed,
		filter: filter,
	}
}

// FindLatestBeta fetches the feed once and applies the first-prerelease-wins rule.
// The error wraps ErrFetchFailure, ErrNoEligibleRelease or ErrMalformedVersion.
func (l *Locator) FindLatestBeta(ctx context.Context) (*release.Candidate, error) {
	logger.Debug(ctx, "Fetching release feed")

	releases, err := l.feed.ListReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	logger.DebugKV(ctx, "Release feed fetched", "releases", len(releases))

	candidate, err := release.SelectLatestBeta(releases, l.filter)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Latest beta found",
		"version", candidate.Version.String(),
		"title", candidate.Release.Name,
		"published_at", candidate.Release.PublishedAt,
		"asset", candidate.Asset.Name,
		"size", candidate.Asset.Size,
		"url", candidate.Asset.DownloadURL)

	return candidate, nil
}
