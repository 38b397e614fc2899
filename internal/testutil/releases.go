package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeAsset is a downloadable file served by FakeReleaseAPI.
type FakeAsset struct {
	Name    string
	Content []byte
}

// FakeRelease is one release of a project.
type FakeRelease struct {
	Tag         string
	PublishedAt string // empty renders as null
	Assets      []FakeAsset
}

// FakeReleaseAPI serves the subset of the GitHub REST API the release
// client uses, plus the asset downloads its payloads point at.
type FakeReleaseAPI struct {
	server *httptest.Server

	mu        sync.Mutex
	releases  map[string][]FakeRelease // project -> newest first
	downloads map[string]int           // asset name -> GET count
}

// NewFakeReleaseAPI starts a fake API server that is closed when t ends.
func NewFakeReleaseAPI(t *testing.T) *FakeReleaseAPI {
	t.Helper()

	f := &FakeReleaseAPI{
		releases:  make(map[string][]FakeRelease),
		downloads: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Head("/", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/repos/{owner}/{repo}/releases/latest", f.handleLatest)
	r.Get("/repos/{owner}/{repo}/releases", f.handleList)
	r.Get("/download/{owner}/{repo}/{tag}/{asset}", f.handleDownload)

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API base URL.
func (f *FakeReleaseAPI) URL() string {
	return f.server.URL
}

// Publish adds rel as the newest release of project ("owner/repo").
func (f *FakeReleaseAPI) Publish(project string, rel FakeRelease) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases[project] = append([]FakeRelease{rel}, f.releases[project]...)
}

// Downloads returns how many times the named asset was downloaded.
func (f *FakeReleaseAPI) Downloads(asset string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads[asset]
}

// TotalDownloads returns the number of asset downloads served.
func (f *FakeReleaseAPI) TotalDownloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.downloads {
		total += n
	}
	return total
}

func (f *FakeReleaseAPI) handleLatest(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")

	f.mu.Lock()
	releases := f.releases[project]
	f.mu.Unlock()

	if len(releases) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, f.payload(project, releases[0]))
}

func (f *FakeReleaseAPI) handleList(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")

	f.mu.Lock()
	releases := f.releases[project]
	f.mu.Unlock()

	list := make([]map[string]any, 0, len(releases))
	for _, rel := range releases {
		list = append(list, f.payload(project, rel))
	}
	writeJSON(w, http.StatusOK, list)
}

func (f *FakeReleaseAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
	tag := chi.URLParam(r, "tag")
	name := chi.URLParam(r, "asset")

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rel := range f.releases[project] {
		if rel.Tag != tag {
			continue
		}
		for _, a := range rel.Assets {
			if a.Name == name {
				f.downloads[name]++
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Header().Set("Content-Length", strconv.Itoa(len(a.Content)))
				_, _ = w.Write(a.Content)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (f *FakeReleaseAPI) payload(project string, rel FakeRelease) map[string]any {
	assets := make([]map[string]any, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		assets = append(assets, map[string]any{
			"name":                 a.Name,
			"size":                 len(a.Content),
			"browser_download_url": f.server.URL + "/download/" + project + "/" + rel.Tag + "/" + a.Name,
		})
	}

	var published any
	if rel.PublishedAt != "" {
		published = rel.PublishedAt
	}
	return map[string]any{
		"tag_name":     rel.Tag,
		"published_at": published,
		"assets":       assets,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
