package deps

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/ledger"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/release"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/testutil"
)

func btbnRelease(t *testing.T, published string) testutil.FakeRelease {
	t.Helper()

	archivePath := testutil.WriteTarGz(t, filepath.Join(t.TempDir(), "ffmpeg.tar.gz"), map[string]string{
		"ffmpeg-master-latest-linux64-gpl/bin/ffmpeg":  "ffmpeg " + published,
		"ffmpeg-master-latest-linux64-gpl/bin/ffprobe": "ffprobe " + published,
		"ffmpeg-master-latest-linux64-gpl/bin/ffplay":  "ffplay " + published,
		"ffmpeg-master-latest-linux64-gpl/LICENSE.txt": "GPL",
	})
	archive, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	sum := sha256.Sum256(archive)
	sums := hex.EncodeToString(sum[:]) + "  ffmpeg-master-latest-linux64-gpl.tar.gz\n"

	return testutil.FakeRelease{
		Tag:         "latest",
		PublishedAt: published,
		Assets: []testutil.FakeAsset{
			{Name: "checksums.sha256", Content: []byte(sums)},
			{Name: "ffmpeg-master-latest-linux64-gpl.tar.gz", Content: archive},
			{Name: "ffmpeg-master-latest-win64-gpl.zip", Content: []byte("windows")},
		},
	}
}

func newIntegrationManager(t *testing.T, baseURL string) *Manager {
	t.Helper()

	client, err := release.NewClient(release.Options{BaseURL: baseURL, RequestTimeout: 5 * time.Second, ProbeTimeout: time.Second})
	require.NoError(t, err)

	root := t.TempDir()
	m, err := NewManager(Config{
		Dir:      filepath.Join(root, "requirements"),
		Platform: linux,
		Releases: client,
		Fetcher:  binary.NewFetcher(binary.FetcherOptions{HeaderTimeout: 5 * time.Second}),
		Ledger:   ledger.InDir(root),
	})
	require.NoError(t, err)
	return m
}

func TestManager_Integration_InstallThenUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Parallel()

	// given
	api := testutil.NewFakeReleaseAPI(t)
	api.Publish("BtbN/FFmpeg-Builds", btbnRelease(t, "2024-05-01T00:00:00Z"))
	m := newIntegrationManager(t, api.URL())

	// when
	installed := m.Install(Transcoder)
	installEvents := collect(t, m, installed)[installed]
	afterInstall := api.TotalDownloads()

	check := m.CheckForUpdate(Transcoder)
	checkEvents := collect(t, m, check)[check]

	api.Publish("BtbN/FFmpeg-Builds", btbnRelease(t, "2024-05-02T00:00:00Z"))
	update := m.CheckForUpdate(Transcoder)
	updateEvents := collect(t, m, update)[update]

	// then
	require.True(t, last(installEvents).Success, last(installEvents).Message)
	assert.Equal(t, ReasonDownloaded, last(installEvents).Reason)
	assert.Equal(t, 1, api.Downloads("ffmpeg-master-latest-linux64-gpl.tar.gz"))
	assert.Equal(t, 1, api.Downloads("checksums.sha256"))
	assert.Zero(t, api.Downloads("ffmpeg-master-latest-win64-gpl.zip"))

	assert.Equal(t, ReasonNoUpdates, last(checkEvents).Reason)
	assert.Equal(t, afterInstall, api.Downloads("ffmpeg-master-latest-linux64-gpl.tar.gz")+api.Downloads("checksums.sha256"))

	require.True(t, last(updateEvents).Success, last(updateEvents).Message)
	assert.Equal(t, ReasonUpdated, last(updateEvents).Reason)
	content, err := os.ReadFile(filepath.Join(m.Dir(), "ffprobe"))
	require.NoError(t, err)
	assert.Equal(t, "ffprobe 2024-05-02T00:00:00Z", string(content))

	versions, err := m.Versions()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02T00:00:00Z", versions[Transcoder])

	var sawProgress bool
	for _, ev := range installEvents {
		if ev.Kind == EventProgress {
			sawProgress = true
		}
	}
	assert.True(t, sawProgress)
}

func TestManager_Integration_Offline(t *testing.T) {
	t.Parallel()

	// given
	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()
	m := newIntegrationManager(t, url)

	// when
	id := m.Install(Downloader)
	final := last(collect(t, m, id)[id])

	// then
	assert.False(t, final.Success)
	assert.Equal(t, "no-internet", final.Reason)
	assert.Equal(t, map[Name]bool{Downloader: false, Transcoder: false}, m.CheckExisting())
}
