package github

import (
	"time"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
)

// releasePayload is the subset of the GitHub release object the updater reads.
type releasePayload struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Prerelease  bool           `json:"prerelease"`
	Draft       bool           `json:"draft"`
	PublishedAt *time.Time     `json:"published_at"`
	Assets      []assetPayload `json:"assets"`
}

// assetPayload is the subset of the GitHub release asset object the updater reads.
type assetPayload struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Digest             string `json:"digest"`
	Size               int64  `json:"size"`
}

// toDomain converts the wire representation into the domain Release.
func (p *releasePayload) toDomain() release.Release {
	var publishedAt time.Time
	if p.PublishedAt != nil {
		publishedAt = *p.PublishedAt
	}

	assets := make([]release.Asset, 0, len(p.Assets))
	for _, a := range p.Assets {
		assets = append(assets, release.Asset{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			Digest:      a.Digest,
			Size:        a.Size,
		})
	}

	return release.Release{
		Tag:          p.TagName,
		Name:         p.Name,
		IsPrerelease: p.Prerelease,
		IsDraft:      p.Draft,
		PublishedAt:  publishedAt,
		Assets:       assets,
	}
}
