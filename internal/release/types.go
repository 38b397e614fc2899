// Package release queries a GitHub-compatible release API for the published
// releases of a project.
package release

import (
	"fmt"
	"strings"
)

// Asset is one downloadable file attached to a Release.
type Asset struct {
	Name string
	URL  string
	Size int64
}

// Release is a tagged, timestamped publication of a project.
type Release struct {
	Project     string // "owner/repo"
	Tag         string
	PublishedAt string // ISO-8601, as reported by the API
	Assets      []Asset
}

// Version returns the key used to decide whether a release was already
// installed: the publish timestamp, or the tag for releases without one.
// It is compared by exact string equality, never parsed.
func (r *Release) Version() string {
	if r.PublishedAt != "" {
		return r.PublishedAt
	}
	return r.Tag
}

// HasAssets reports whether the release has at least one downloadable asset.
func (r *Release) HasAssets() bool {
	return len(r.Assets) > 0
}

// FindAsset returns the asset with exactly the given name.
func (r *Release) FindAsset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// splitProject splits "owner/repo".
func splitProject(project string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.Trim(project, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid project %q: want owner/repo", project)
	}
	return owner, repo, nil
}
