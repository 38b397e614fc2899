package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/config"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/deps"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/ledger"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/release"
)

// app is everything the operation commands need.
type app struct {
	dig.In

	Config   *config.Config
	Platform *platform.Info
	Manager  *deps.Manager
	Releases *release.Client
	Registry *prometheus.Registry
	Logger   logging.Logger
}

// configOnly is injected by commands that must not create a manager or
// touch the data directory.
type configOnly struct {
	dig.In

	Config *config.Config
	Path   configPath
}

// configPath is the resolved config file location.
type configPath string

func buildContainer(ctx context.Context, opts *globalOptions) (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		func() context.Context { return ctx },
		func() logging.Logger { return logging.NewLogrus(logrus.StandardLogger()) },
		opts.resolveConfigPath,
		opts.detectPlatform,
		opts.loadConfig,
		newReleaseClient,
		newFetcher,
		newLedger,
		newVerifier,
		prometheus.NewRegistry,
		newManager,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}

	return container, nil
}

// loadApp builds the full application graph.
func loadApp(ctx context.Context, opts *globalOptions) (*app, error) {
	var a *app
	if err := invoke(ctx, opts, func(in app) { a = &in }); err != nil {
		return nil, err
	}
	return a, nil
}

// loadConfigOnly resolves and loads the configuration.
func loadConfigOnly(ctx context.Context, opts *globalOptions) (*configOnly, error) {
	var c *configOnly
	if err := invoke(ctx, opts, func(in configOnly) { c = &in }); err != nil {
		return nil, err
	}
	return c, nil
}

func invoke(ctx context.Context, opts *globalOptions, fn any) error {
	container, err := buildContainer(ctx, opts)
	if err != nil {
		return err
	}
	if err := container.Invoke(fn); err != nil {
		// dig wraps constructor errors in its own context
		return dig.RootCause(err)
	}
	return nil
}

func (o *globalOptions) resolveConfigPath() configPath {
	if o.configPath != "" {
		return configPath(o.configPath)
	}
	return configPath(config.DefaultPath())
}

func (o *globalOptions) detectPlatform(ctx context.Context) (*platform.Info, error) {
	if o.platform != "" {
		return platform.Parse(o.platform)
	}
	return platform.NewDetector().Detect(ctx)
}

// loadConfig reads the config file and environment, then applies flags.
func (o *globalOptions) loadConfig(ctx context.Context, path configPath, info *platform.Info, logger logging.Logger) (*config.Config, error) {
	parser := config.NewParser(platform.Static{Info: info}, logger)
	cfg, err := parser.Load(ctx, string(path), os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %s", path, config.FormatError(err, o.verbose))
	}

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.token != "" {
		cfg.API.Token = o.token
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.legacySelect {
		cfg.Selection = binary.SelectLegacy.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newReleaseClient(cfg *config.Config, logger logging.Logger) (*release.Client, error) {
	return release.NewClient(release.Options{
		BaseURL:        cfg.API.BaseURL,
		Token:          cfg.API.Token,
		RequestTimeout: cfg.API.RequestTimeout,
		ProbeTimeout:   cfg.API.ProbeTimeout,
		UserAgent:      "vdlaunch/" + Version,
		Logger:         logger,
	})
}

func newFetcher(cfg *config.Config, logger logging.Logger) *binary.Fetcher {
	return binary.NewFetcher(binary.FetcherOptions{
		HeaderTimeout: cfg.API.DownloadHeaderTimeout,
		UserAgent:     "vdlaunch/" + Version,
		Logger:        logger,
	})
}

func newLedger(cfg *config.Config) (*ledger.Ledger, error) {
	l := ledger.New(cfg.LedgerPath())
	if err := l.Ensure(); err != nil {
		return nil, err
	}
	return l, nil
}

func newVerifier(cfg *config.Config) *binary.Verifier {
	return binary.NewVerifier(cfg.Keyring)
}

type managerParams struct {
	dig.In

	Context  context.Context
	Config   *config.Config
	Platform *platform.Info
	Releases *release.Client
	Fetcher  *binary.Fetcher
	Ledger   *ledger.Ledger
	Verifier *binary.Verifier
	Registry *prometheus.Registry
	Logger   logging.Logger
}

func newManager(p managerParams) (*deps.Manager, error) {
	dependencies, err := p.Config.ResolveDependencies(p.Platform)
	if err != nil {
		return nil, err
	}

	return deps.NewManager(deps.Config{
		Dir:          p.Config.RequirementsDir(),
		Platform:     p.Platform,
		Dependencies: dependencies,
		Releases:     p.Releases,
		Fetcher:      p.Fetcher,
		Ledger:       p.Ledger,
		Verifier:     p.Verifier,
		SelectMode:   p.Config.SelectMode(),
		EventBuffer:  p.Config.EventBuffer,
		Metrics:      deps.NewMetrics(p.Registry),
		Logger:       p.Logger,
		Context:      p.Context,
	})
}
