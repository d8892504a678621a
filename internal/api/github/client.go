package github

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
)

const (
	// DefaultCallTimeout bounds a release list request.
	DefaultCallTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds a whole asset download.
	DefaultDownloadTimeout = 30 * time.Minute

	// maxFeedSize caps the release list body.
	maxFeedSize = 16 << 20

	schemaResource = "releases.schema.json"
)

var (
	// ErrBadHTTPStatus is returned for any non-200 response.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrRateLimited is returned when GitHub refuses the request with 403 or 429.
	ErrRateLimited = errors.New("rate limited by GitHub API")
	// ErrInvalidFeed is returned when the release list does not match the schema.
	ErrInvalidFeed = errors.New("release feed does not match schema")

	errFeedURLRequired = errors.New("feed url must be provided")
)

//go:embed schema/releases.schema.json
var releasesSchema []byte

// Client fetches releases and assets over HTTP.
type Client struct {
	// feedURL is the release list endpoint.
	feedURL string
	// httpClient performs the requests; deadlines come from contexts.
	httpClient *http.Client
	// token is sent as a bearer token when set.
	token string
	// userAgent identifies the updater to GitHub.
	userAgent string
	// callTimeout bounds release list requests.
	callTimeout time.Duration
	// downloadTimeout bounds asset downloads including the body.
	downloadTimeout time.Duration
	// schema validates the release list.
	schema *jsonschema.Schema
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCallTimeout sets the timeout for release list requests.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDownloadTimeout sets the timeout for asset downloads.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.downloadTimeout = timeout
		}
	}
}

// WithToken authenticates requests, which raises the API rate limit.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// NewClient creates a client for the release list at feedURL.
func NewClient(feedURL string, opts ...Option) (*Client, error) {
	if feedURL == "" {
		return nil, errFeedURLRequired
	}

	if _, err := url.ParseRequestURI(feedURL); err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	c := &Client{
		feedURL:         feedURL,
		httpClient:      new(http.Client),
		userAgent:       "emby-beta-updater",
		callTimeout:     DefaultCallTimeout,
		downloadTimeout: DefaultDownloadTimeout,
		schema:          schema,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ListReleases fetches a single page of releases in feed order.
func (c *Client) ListReleases(ctx context.Context) ([]release.Release, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	response, err := c.get(callCtx, c.feedURL, "application/vnd.github.v3+json")
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("read release feed: %w", err)
	}

	return c.decodeReleases(body)
}

// OpenAsset starts downloading url. The caller must close the returned body.
func (c *Client) OpenAsset(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	downloadCtx, cancel := context.WithTimeout(ctx, c.downloadTimeout)

	response, err := c.get(downloadCtx, assetURL, "application/octet-stream")
	if err != nil {
		cancel()

		return nil, err
	}

	return &cancelOnClose{
		ReadCloser: response.Body,
		cancel:     cancel,
	}, nil
}

// get issues a GET request and returns the response only for status 200.
func (c *Client) get(ctx context.Context, target, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	if c.token != "" && c.sameHostAsFeed(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}

	if response.StatusCode == http.StatusOK {
		return response, nil
	}

	_ = response.Body.Close()

	if response.StatusCode == http.StatusForbidden || response.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s, %s: %w", target, response.Status, ErrRateLimited)
	}

	return nil, fmt.Errorf("%s, %s: %w", target, response.Status, ErrBadHTTPStatus)
}

// sameHostAsFeed keeps the token away from hosts other than the feed's.
func (c *Client) sameHostAsFeed(u *url.URL) bool {
	feed, err := url.Parse(c.feedURL)
	if err != nil {
		return false
	}

	return feed.Host == u.Host
}

func (c *Client) decodeReleases(body []byte) ([]release.Release, error) {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode release feed: %w", err)
	}

	if err = c.schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeed, err)
	}

	var payload []releasePayload
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode release feed: %w", err)
	}

	releases := make([]release.Release, 0, len(payload))
	for i := range payload {
		releases = append(releases, payload[i].toDomain())
	}

	return releases, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(releasesSchema))
	if err != nil {
		return nil, fmt.Errorf("load release schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err = compiler.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("add release schema: %w", err)
	}

	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile release schema: %w", err)
	}

	return schema, nil
}

// cancelOnClose releases the download deadline once the body is closed.
type cancelOnClose struct {
	io.ReadCloser

	cancel context.CancelFunc
}

// Close closes the body and cancels its context.
func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()

	return err
}
