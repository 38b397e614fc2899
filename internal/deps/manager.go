// Package deps installs and updates the external tools the launcher drives.
//
// A Manager runs one worker goroutine per requested operation. Workers report
// back over a single buffered Event channel: state changes and the final
// result are always delivered, progress is dropped when the consumer falls
// behind. Nothing a worker does can fail the caller; every error, and every
// panic, ends up as a finished event with a machine-readable reason.
package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/failure"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/release"
)

// DefaultEventBuffer is the event channel capacity used when none is configured.
const DefaultEventBuffer = 64

// ReleaseSource looks up published releases.
type ReleaseSource interface {
	Probe(ctx context.Context) error
	Latest(ctx context.Context, project string) (*release.Release, error)
	FirstWithAssets(ctx context.Context, project string) (*release.Release, error)
}

// Fetcher downloads a URL to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string, onProgress binary.ProgressFunc) (int64, error)
}

// VersionStore records the installed version of each dependency.
type VersionStore interface {
	Get(name string) (string, bool, error)
	Set(name, version string) error
	All() (map[string]string, error)
}

// Config holds the collaborators of a Manager.
type Config struct {
	// Dir receives the installed executables.
	Dir          string
	Platform     *platform.Info
	Dependencies []Dependency

	Releases ReleaseSource
	Fetcher  Fetcher
	Ledger   VersionStore
	Verifier *binary.Verifier // optional

	SelectMode  binary.SelectMode
	EventBuffer int
	Metrics     *Metrics // optional
	Clock       Clock    // optional, stamps events
	Logger      logging.Logger

	// Context is the parent of every operation. Cancelling it aborts
	// running fetches.
	Context context.Context
}

// Manager orchestrates install and update operations.
type Manager struct {
	dir        string
	platform   *platform.Info
	deps       map[Name]Dependency
	order      []Name
	releases   ReleaseSource
	fetcher    Fetcher
	ledger     VersionStore
	verifier   *binary.Verifier
	installer  *binary.Installer
	selectMode binary.SelectMode
	metrics    *Metrics
	clock      Clock
	logger     logging.Logger
	ctx        context.Context

	events chan Event
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[Name]string
	closed   bool
}

// NewManager validates cfg and creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("install directory is required")
	}
	if cfg.Platform == nil {
		return nil, fmt.Errorf("platform is required")
	}
	if cfg.Releases == nil || cfg.Fetcher == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("release source, fetcher and ledger are required")
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = DefaultDependencies(cfg.Platform)
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	if cfg.Verifier == nil {
		cfg.Verifier = binary.NewVerifier("")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	logger := logging.OrNoop(cfg.Logger)

	m := &Manager{
		dir:        cfg.Dir,
		platform:   cfg.Platform,
		deps:       make(map[Name]Dependency, len(cfg.Dependencies)),
		releases:   cfg.Releases,
		fetcher:    cfg.Fetcher,
		ledger:     cfg.Ledger,
		verifier:   cfg.Verifier,
		installer:  binary.NewInstaller(cfg.Platform.IsPOSIX(), logger),
		selectMode: cfg.SelectMode,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		logger:     logger,
		ctx:        cfg.Context,
		events:     make(chan Event, cfg.EventBuffer),
		inflight:   make(map[Name]string),
	}

	for _, d := range cfg.Dependencies {
		if d.Name == "" || d.Project == "" || d.Keyword == "" || len(d.Files) == 0 {
			return nil, fmt.Errorf("dependency %q: name, project, keyword and files are required", d.Name)
		}
		if !d.Bundle && len(d.Files) != 1 {
			return nil, fmt.Errorf("dependency %q: a single executable must list exactly one file", d.Name)
		}
		if _, dup := m.deps[d.Name]; dup {
			return nil, fmt.Errorf("dependency %q declared twice", d.Name)
		}
		m.deps[d.Name] = d
		m.order = append(m.order, d.Name)
	}

	return m, nil
}

// Events returns the channel every operation reports on. It is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Dir returns the install directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Dependencies returns the declared dependencies in declaration order.
func (m *Manager) Dependencies() []Dependency {
	out := make([]Dependency, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.deps[n])
	}
	return out
}

// Lookup returns the declaration of name.
func (m *Manager) Lookup(name Name) (Dependency, bool) {
	d, ok := m.deps[name]
	return d, ok
}

// Busy reports whether name has an operation in flight, and its ID.
func (m *Manager) Busy(name Name) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.inflight[name]
	return id, ok
}

// CheckExisting reports, per dependency, whether all its executables are
// present in the install directory. It does no network work.
func (m *Manager) CheckExisting() map[Name]bool {
	result := make(map[Name]bool, len(m.order))
	for _, n := range m.order {
		present := true
		for _, file := range m.deps[n].Executables(m.platform) {
			info, err := os.Stat(filepath.Join(m.dir, file))
			if err != nil || info.IsDir() {
				present = false
				break
			}
		}
		result[n] = present
	}
	return result
}

// Versions returns the recorded version of every installed dependency.
func (m *Manager) Versions() (map[Name]string, error) {
	all, err := m.ledger.All()
	if err != nil {
		return map[Name]string{}, err
	}
	out := make(map[Name]string, len(all))
	for k, v := range all {
		out[Name(k)] = v
	}
	return out, nil
}

// Install downloads and installs the latest release of name in the background
// and returns the operation ID.
func (m *Manager) Install(name Name) string {
	return m.start(name, ModeForceInstall)
}

// CheckForUpdate installs the latest release of name in the background unless
// it is already the recorded version. It returns the operation ID.
func (m *Manager) CheckForUpdate(name Name) string {
	return m.start(name, ModeCompareThenInstall)
}

// Wait blocks until every running operation has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close waits for running operations and closes the event channel. Operations
// requested after Close are ignored and get an empty ID.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()
	close(m.events)
}

func (m *Manager) start(name Name, mode Mode) string {
	op := &operation{
		id:      uuid.NewString(),
		name:    name,
		mode:    mode,
		events:  m.events,
		clock:   m.clock,
		percent: -1,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Warn("operation requested after close", "dependency", name, "mode", mode)
		return ""
	}

	dep, known := m.deps[name]
	running, busy := m.inflight[name]
	if known && !busy {
		m.inflight[name] = op.id
	}
	m.wg.Add(1)
	m.mu.Unlock()

	switch {
	case !known:
		m.logger.Warn("unknown dependency", "dependency", name)
		go func() {
			defer m.wg.Done()
			op.finish(false, ReasonUnknownDependency, fmt.Sprintf("unknown dependency %q", name), "")
		}()
	case busy:
		m.logger.Info("operation already running", "dependency", name, "operation", running)
		m.metrics.rejected(name, mode, ReasonBusy)
		go func() {
			defer m.wg.Done()
			op.finish(false, ReasonBusy, fmt.Sprintf("%s already has operation %s running", name, running), "")
		}()
	default:
		op.dep = dep
		go m.run(op)
	}

	return op.id
}

// run executes one operation and reports its outcome.
func (m *Manager) run(op *operation) {
	defer m.wg.Done()

	start := time.Now()
	m.metrics.started(op.name)

	reason, version, err := m.execute(op)
	if err != nil {
		reason = failure.Reason(err)
		m.logger.Error("operation failed", "dependency", op.name, "mode", op.mode, "reason", reason, "error", err)
		op.setState(StateFailed)
	} else {
		m.logger.Info("operation finished", "dependency", op.name, "mode", op.mode, "reason", reason, "version", version,
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
	m.metrics.finished(op.name, op.mode, reason, time.Since(start))

	m.mu.Lock()
	delete(m.inflight, op.name)
	m.mu.Unlock()

	if err != nil {
		op.finish(false, reason, err.Error(), "")
		return
	}
	op.finish(true, reason, successMessage(op.name, reason, version), version)
}

// execute runs the pipeline, turning a panic into an error.
func (m *Manager) execute(op *operation) (reason, version string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return m.pipeline(m.ctx, op)
}

// pipeline is shared by install and update. In ModeCompareThenInstall a
// release whose version equals the recorded one ends the operation before any
// download.
func (m *Manager) pipeline(ctx context.Context, op *operation) (reason, version string, err error) {
	dep := op.dep
	op.setState(StateChecking)

	if err := m.releases.Probe(ctx); err != nil {
		return "", "", err
	}

	rel, err := m.latestWithAssets(ctx, dep)
	if err != nil {
		return "", "", err
	}
	version = rel.Version()

	if op.mode == ModeCompareThenInstall {
		if recorded, ok := m.recorded(dep.Name); ok && recorded == version {
			op.setState(StateUpToDate)
			return ReasonNoUpdates, version, nil
		}
		op.setState(StateUpdateAvailable)
	}

	op.setState(StateInstalling)
	if err := m.install(ctx, op, rel); err != nil {
		return "", "", err
	}

	if err := m.ledger.Set(string(dep.Name), version); err != nil {
		m.logger.Warn("record installed version", "dependency", dep.Name, "version", version, "error", err)
	}

	if op.mode == ModeCompareThenInstall {
		return ReasonUpdated, version, nil
	}
	return ReasonDownloaded, version, nil
}

// latestWithAssets returns the latest release, or the most recent release
// with assets when the latest has none.
func (m *Manager) latestWithAssets(ctx context.Context, dep Dependency) (*release.Release, error) {
	rel, err := m.releases.Latest(ctx, dep.Project)
	if err != nil {
		return nil, err
	}
	if rel.HasAssets() {
		return rel, nil
	}

	m.logger.Debug("latest release has no assets, searching older releases", "project", dep.Project, "tag", rel.Tag)
	return m.releases.FirstWithAssets(ctx, dep.Project)
}

// recorded returns the ledger version of name. An unreadable ledger counts
// as no version.
func (m *Manager) recorded(name Name) (string, bool) {
	v, ok, err := m.ledger.Get(string(name))
	if err != nil {
		m.logger.Warn("read version ledger", "dependency", name, "error", err)
		return "", false
	}
	return v, ok
}

// install selects, downloads, verifies and installs the asset of rel.
func (m *Manager) install(ctx context.Context, op *operation, rel *release.Release) error {
	dep := op.dep

	asset, ok := dep.Select(rel, m.platform, m.selectMode)
	if !ok {
		return failure.Newf(failure.KindAssetNotFound, "", "no asset of %s %s matches %q", dep.Project, rel.Tag, dep.Keyword)
	}
	m.logger.Debug("selected asset", "dependency", dep.Name, "asset", asset.Name, "tag", rel.Tag)

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return failure.New(failure.KindInstall, "create install dir", err)
	}

	executables := dep.Executables(m.platform)
	staging := filepath.Join(m.dir, filepath.Base(asset.Name))
	if !dep.Bundle {
		staging = filepath.Join(m.dir, executables[0]+".download")
	}

	n, err := m.fetcher.Fetch(ctx, asset.URL, staging, op.progress)
	m.metrics.addFetched(dep.Name, n)
	if err != nil {
		return err
	}

	method, err := m.verify(ctx, dep, rel, asset, staging)
	if err != nil {
		os.Remove(staging)
		return err
	}

	if dep.Bundle {
		installed, err := m.installer.InstallFrom(staging, executables, m.dir)
		if err != nil {
			return err
		}
		m.logger.Info("installed", "dependency", dep.Name, "files", installed, "verification", method)
		return nil
	}

	if err := m.installer.Install(staging, filepath.Join(m.dir, executables[0])); err != nil {
		os.Remove(staging)
		return err
	}
	m.logger.Info("installed", "dependency", dep.Name, "files", executables, "verification", method)
	return nil
}

// verify checks path against the release's checksum file and, when a
// keyring is configured, the checksum file's signature. Releases without a
// checksum file are not verified.
func (m *Manager) verify(ctx context.Context, dep Dependency, rel *release.Release, asset release.Asset, path string) (binary.VerificationMethod, error) {
	if dep.ChecksumAsset == "" {
		return binary.VerificationNone, nil
	}
	sums, ok := rel.FindAsset(dep.ChecksumAsset)
	if !ok {
		m.logger.Warn("release has no checksum file", "dependency", dep.Name, "asset", dep.ChecksumAsset, "tag", rel.Tag)
		return binary.VerificationNone, nil
	}

	sumsPath := filepath.Join(m.dir, "."+string(dep.Name)+"-"+sums.Name)
	defer os.Remove(sumsPath)
	if _, err := m.fetcher.Fetch(ctx, sums.URL, sumsPath, nil); err != nil {
		return binary.VerificationNone, err
	}

	method := binary.VerificationSHA256
	if m.verifier.CanVerifySignatures() && dep.SignatureAsset != "" {
		sig, ok := rel.FindAsset(dep.SignatureAsset)
		if !ok {
			m.logger.Warn("release has no signature file", "dependency", dep.Name, "asset", dep.SignatureAsset, "tag", rel.Tag)
		} else {
			sigPath := filepath.Join(m.dir, "."+string(dep.Name)+"-"+sig.Name)
			defer os.Remove(sigPath)
			if _, err := m.fetcher.Fetch(ctx, sig.URL, sigPath, nil); err != nil {
				return binary.VerificationNone, err
			}
			if err := m.verifier.VerifySignature(sumsPath, sigPath); err != nil {
				return binary.VerificationNone, failure.New(failure.KindVerification, sums.Name, err)
			}
			method = binary.VerificationSignedSHA256
		}
	}

	if err := m.verifier.VerifyChecksum(path, sumsPath, asset.Name); err != nil {
		return binary.VerificationNone, failure.New(failure.KindVerification, "", err)
	}
	return method, nil
}

func successMessage(name Name, reason, version string) string {
	switch reason {
	case ReasonNoUpdates:
		return fmt.Sprintf("%s is up to date (%s)", name, version)
	case ReasonUpdated:
		return fmt.Sprintf("%s updated to %s", name, version)
	default:
		return fmt.Sprintf("%s %s installed", name, version)
	}
}

// SortedNames returns the keys of m in lexical order.
func SortedNames[V any](m map[Name]V) []Name {
	names := make([]Name, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
