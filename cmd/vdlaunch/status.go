package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show platform, directories and installed versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Manager.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Platform:     %s/%s\n", a.Platform.OS, a.Platform.Arch)
			fmt.Fprintf(out, "Requirements: %s\n", a.Manager.Dir())
			fmt.Fprintf(out, "Ledger:       %s\n", a.Config.LedgerPath())
			fmt.Fprintf(out, "Selection:    %s\n", a.Config.SelectMode())
			fmt.Fprintln(out)

			versions, err := a.Manager.Versions()
			if err != nil {
				a.Logger.Warn("read installed versions", "error", err)
			}
			present := a.Manager.CheckExisting()

			for _, d := range a.Manager.Dependencies() {
				symbol := "✗"
				if present[d.Name] {
					symbol = "✓"
				}
				version := versions[d.Name]
				if version == "" {
					version = "-"
				}
				fmt.Fprintf(out, "  %s %-8s %-22s %s\n", symbol, d.Name, version, d.Project)
			}
			return nil
		},
	}
}
