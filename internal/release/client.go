package release

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/failure"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com/"
	// DefaultRequestTimeout bounds each release metadata request.
	DefaultRequestTimeout = 20 * time.Second
	// DefaultProbeTimeout bounds the reachability probe.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "vdlaunch/1.0"

	perPage = 30
)

// Options configures a Client.
type Options struct {
	BaseURL        string        // API base, default DefaultBaseURL
	Token          string        // optional bearer token, raises rate limits
	RequestTimeout time.Duration // default DefaultRequestTimeout
	ProbeTimeout   time.Duration // default DefaultProbeTimeout
	UserAgent      string
	Logger         logging.Logger
}

// Client fetches release metadata.
type Client struct {
	gh     *gh.Client
	probe  *http.Client
	base   *url.URL
	ua     string
	logger logging.Logger
}

// NewClient creates a release client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	// go-github resolves relative paths against BaseURL and requires the
	// trailing slash.
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", base.Scheme)
	}

	client := gh.NewClient(&http.Client{Timeout: opts.RequestTimeout})
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	client.BaseURL = base
	client.UserAgent = opts.UserAgent

	return &Client{
		gh:     client,
		probe:  &http.Client{Timeout: opts.ProbeTimeout},
		base:   base,
		ua:     opts.UserAgent,
		logger: logging.OrNoop(opts.Logger),
	}, nil
}

// Probe checks that the API host is reachable. Any HTTP response counts as
// reachable; only transport failures report offline.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return failure.New(failure.KindOffline, "create probe request", err)
	}
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.probe.Do(req)
	if err != nil {
		c.logger.Debug("reachability probe failed", "url", c.base.String(), "error", err)
		return failure.New(failure.KindOffline, "", err)
	}
	resp.Body.Close()

	return nil
}

// Latest returns the latest published release of project ("owner/repo").
func (c *Client) Latest(ctx context.Context, project string) (*Release, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, "latest release", err)
	}

	rel, _, err := c.gh.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, fmt.Sprintf("latest release of %s", project), describe(err))
	}

	r := convert(project, rel)
	c.logger.Debug("fetched latest release", "project", project, "tag", r.Tag, "published_at", r.PublishedAt, "assets", len(r.Assets))
	return r, nil
}

// All returns the first page of releases of project, most recent first as
// ordered by the API.
func (c *Client) All(ctx context.Context, project string) ([]Release, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, "list releases", err)
	}

	rels, _, err := c.gh.Repositories.ListReleases(ctx, owner, repo, &gh.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, failure.New(failure.KindNetwork, fmt.Sprintf("list releases of %s", project), describe(err))
	}

	out := make([]Release, 0, len(rels))
	for _, rel := range rels {
		out = append(out, *convert(project, rel))
	}
	return out, nil
}

// FirstWithAssets returns the most recent release of project that actually
// has downloadable assets. Some projects publish asset-less releases.
func (c *Client) FirstWithAssets(ctx context.Context, project string) (*Release, error) {
	rels, err := c.All(ctx, project)
	if err != nil {
		return nil, err
	}
	for i := range rels {
		if rels[i].HasAssets() {
			return &rels[i], nil
		}
	}
	return nil, failure.Newf(failure.KindAssetNotFound, "", "no release of %s has assets", project)
}

// convert maps the go-github release model to ours.
func convert(project string, rel *gh.RepositoryRelease) *Release {
	r := &Release{
		Project: project,
		Tag:     rel.GetTagName(),
		Assets:  make([]Asset, 0, len(rel.Assets)),
	}
	if ts := rel.GetPublishedAt(); !ts.IsZero() {
		r.PublishedAt = ts.UTC().Format(time.RFC3339)
	}
	for _, a := range rel.Assets {
		r.Assets = append(r.Assets, Asset{
			Name: a.GetName(),
			URL:  a.GetBrowserDownloadURL(),
			Size: int64(a.GetSize()),
		})
	}
	return r
}

// describe shortens go-github errors to something a user can read in a
// one-line notification.
func describe(err error) error {
	if er, ok := err.(*gh.ErrorResponse); ok && er.Response != nil {
		return fmt.Errorf("unexpected status code: %d %s", er.Response.StatusCode, er.Message)
	}
	if rl, ok := err.(*gh.RateLimitError); ok {
		return fmt.Errorf("rate limit exceeded, resets at %s", rl.Rate.Reset.Format(time.RFC3339))
	}
	return err
}
