package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which dependencies are installed, without network access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Manager.Close()

			out := cmd.OutOrStdout()
			present := a.Manager.CheckExisting()
			missing := 0
			for _, d := range a.Manager.Dependencies() {
				if present[d.Name] {
					fmt.Fprintf(out, "  ✓ %s\n", d.Name)
					continue
				}
				missing++
				fmt.Fprintf(out, "  ✗ %s\n", d.Name)
			}

			if missing > 0 {
				return fmt.Errorf("%d of %d dependencies missing from %s; run 'vdlaunch install'",
					missing, len(present), a.Manager.Dir())
			}
			return nil
		},
	}
}
