package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags. Set flags override the config
// file and the environment.
type globalOptions struct {
	configPath   string
	dataDir      string
	token        string
	apiURL       string
	platform     string
	legacySelect bool
	verbose      bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "vdlaunch",
		Short: "Install and update yt-dlp and ffmpeg",
		Long: `vdlaunch keeps the external tools of the video downloader up to date.

It finds the newest release of yt-dlp and ffmpeg on GitHub, picks the asset
built for this machine, downloads, verifies and unpacks it into the
requirements directory, and records the installed release so later updates
are skipped until a newer one is published.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: $VDLAUNCH_CONFIG or the user config dir)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory holding requirements/ and the version ledger")
	flags.StringVar(&opts.token, "token", "", "GitHub token (overrides GITHUB_TOKEN)")
	flags.StringVar(&opts.apiURL, "api-url", "", "Release API base URL")
	flags.StringVar(&opts.platform, "platform", "", "Install for another platform, as os/arch (e.g. windows/amd64)")
	flags.BoolVar(&opts.legacySelect, "legacy-select", false, "Fall back to the first asset when no asset name contains the dependency keyword")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	cmd.AddCommand(
		newCheckCommand(opts),
		newInstallCommand(opts),
		newUpdateCommand(opts),
		newReleasesCommand(opts),
		newStatusCommand(opts),
		newServeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)

	return cmd
}
