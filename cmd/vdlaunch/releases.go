package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReleasesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "releases [dependency...]",
		Short: "Show the latest release and the asset that would be installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Manager.Close()

			names, err := selectDependencies(a.Manager, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.Releases.Probe(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				d, _ := a.Manager.Lookup(name)
				rel, err := a.Releases.Latest(ctx, d.Project)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}

				fmt.Fprintf(out, "%s (%s)\n", name, d.Project)
				fmt.Fprintf(out, "  tag:       %s\n", rel.Tag)
				fmt.Fprintf(out, "  version:   %s\n", rel.Version())
				fmt.Fprintf(out, "  assets:    %d\n", len(rel.Assets))
				if asset, ok := d.Select(rel, a.Platform, a.Config.SelectMode()); ok {
					fmt.Fprintf(out, "  selected:  %s\n", asset.Name)
				} else {
					fmt.Fprintf(out, "  selected:  none for %s/%s\n", a.Platform.OS, a.Platform.Arch)
				}
			}
			return nil
		},
	}
}
