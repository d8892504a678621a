package release

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoEligibleRelease is returned when the feed has no installable beta artifact.
var ErrNoEligibleRelease = errors.New("no eligible release")

// Asset is a file attached to a release.
type Asset struct {
	// Name is the file name shown in the feed.
	Name string
	// DownloadURL points at the file itself.
	DownloadURL string
	// Digest is the published checksum in "algorithm:hex" form, empty when absent.
	Digest string
	// Size is the file size in bytes as reported by the feed.
	Size int64
}

// Release is a published build of the upstream project.
type Release struct {
	// Tag is the version identifier, e.g. "4.9.0.30".
	Tag string
	// Name is the human title of the release.
	Name string
	// IsPrerelease marks a beta build, the only kind the updater installs.
	IsPrerelease bool
	// IsDraft marks an unpublished release visible only to maintainers.
	IsDraft bool
	// PublishedAt is when the release became public.
	PublishedAt time.Time
	// Assets are kept in feed order.
	Assets []Asset
}

// Filter selects the installable artifact among the assets of a release.
// An asset matches when its name contains every marker.
type Filter struct {
	Markers []string
}

// NewFilter builds a filter from non-empty markers.
func NewFilter(markers ...string) Filter {
	f := Filter{Markers: make([]string, 0, len(markers))}

	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			f.Markers = append(f.Markers, m)
		}
	}

	return f
}

// Matches reports whether name contains every marker of the filter.
func (f Filter) Matches(name string) bool {
	for _, m := range f.Markers {
		if !strings.Contains(name, m) {
			return false
		}
	}

	return true
}

// Candidate is the newest beta release together with its artifact.
type Candidate struct {
	// Release is the selected pre-release.
	Release Release
	// Version is the parsed release tag.
	Version Version
	// Asset is the artifact to download.
	Asset Asset
}

// SelectLatestBeta picks the first pre-release in feed order and, within it,
// the first asset accepted by filter.
//
// The feed lists the newest release first. When that pre-release has no
// matching asset the search stops there and older betas are not considered.
// Drafts are skipped.
func SelectLatestBeta(releases []Release, filter Filter) (*Candidate, error) {
	for i := range releases {
		r := &releases[i]
		if !r.IsPrerelease || r.IsDraft {
			continue
		}

		asset, ok := firstMatchingAsset(r.Assets, filter)
		if !ok {
			return nil, fmt.Errorf("%w: pre-release %s has no asset matching %q",
				ErrNoEligibleRelease, r.Tag, filter.Markers)
		}

		v, err := ParseVersion(r.Tag)
		if err != nil {
			return nil, fmt.Errorf("pre-release tag: %w", err)
		}

		return &Candidate{
			Release: *r,
			Version: v,
			Asset:   asset,
		}, nil
	}

	return nil, fmt.Errorf("%w: feed lists %d releases, none is a pre-release", ErrNoEligibleRelease, len(releases))
}

func firstMatchingAsset(assets []Asset, filter Filter) (Asset, bool) {
	for _, a := range assets {
		if filter.Matches(a.Name) {
			return a, true
		}
	}

	return Asset{}, false
}
