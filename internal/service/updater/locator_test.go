package updater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
)

// TestLocatorFindsLatestBeta returns the first pre-release with its artifact.
func TestLocatorFindsLatestBeta(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{releases: []release.Release{
		{Tag: "4.8.0.80"},
		betaRelease("4.9.0.42"),
		betaRelease("4.9.0.41"),
	}}

	c, err := NewLocator(feed, embyFilter()).FindLatestBeta(context.Background())
	require.NoError(t, err)
	require.Equal(t, "4.9.0.42", c.Version.String())
	require.Equal(t, "emby-server-deb_4.9.0.42_amd64.deb", c.Asset.Name)
	require.Equal(t, 1, feed.calls)
}

// TestLocatorErrors classifies transport errors and empty feeds.
func TestLocatorErrors(t *testing.T) {
	t.Parallel()

	_, err := NewLocator(&fakeFeed{err: errBoom}, embyFilter()).FindLatestBeta(context.Background())
	require.ErrorIs(t, err, ErrFetchFailure)
	require.ErrorIs(t, err, errBoom)

	_, err = NewLocator(&fakeFeed{releases: []release.Release{{Tag: "4.8.0.80"}}}, embyFilter()).
		FindLatestBeta(context.Background())
	require.ErrorIs(t, err, ErrNoEligibleRelease)
	require.NotErrorIs(t, err, ErrFetchFailure)
}
