package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/deps"
)

func newInstallCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install [dependency...]",
		Short: "Download and install the latest release, whatever is installed",
		Long: `Install downloads the latest release of each named dependency (all of
them by default) and installs it into the requirements directory, replacing
any installed version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperations(cmd, opts, deps.ModeForceInstall, args)
		},
	}
}

func newUpdateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update [dependency...]",
		Short: "Install the latest release when it differs from the recorded one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperations(cmd, opts, deps.ModeCompareThenInstall, args)
		},
	}
}

// runOperations starts one operation per dependency and follows their events
// until all have finished.
func runOperations(cmd *cobra.Command, opts *globalOptions, mode deps.Mode, args []string) error {
	a, err := loadApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Manager.Close()

	names, err := selectDependencies(a.Manager, args)
	if err != nil {
		return err
	}

	ids := make(map[string]deps.Name, len(names))
	for _, name := range names {
		var id string
		if mode == deps.ModeCompareThenInstall {
			id = a.Manager.CheckForUpdate(name)
		} else {
			id = a.Manager.Install(name)
		}
		ids[id] = name
	}

	results := follow(a.Manager.Events(), ids, cmd.OutOrStdout())

	failed := 0
	for _, ev := range results {
		if !ev.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(names))
	}
	return nil
}

// selectDependencies validates args against the declared dependencies. No
// args means all of them.
func selectDependencies(m *deps.Manager, args []string) ([]deps.Name, error) {
	if len(args) == 0 {
		var names []deps.Name
		for _, d := range m.Dependencies() {
			names = append(names, d.Name)
		}
		return names, nil
	}

	seen := make(map[deps.Name]bool, len(args))
	var names []deps.Name
	for _, arg := range args {
		name := deps.Name(arg)
		if _, ok := m.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown dependency %q", arg)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// follow prints the events of the operations in ids until each has finished,
// and returns the finished events by dependency. Progress is printed in
// steps of ten percent.
func follow(events <-chan deps.Event, ids map[string]deps.Name, out io.Writer) map[deps.Name]deps.Event {
	results := make(map[deps.Name]deps.Event, len(ids))
	shown := make(map[string]int, len(ids))

	for len(results) < len(ids) {
		ev, ok := <-events
		if !ok {
			break
		}
		if _, mine := ids[ev.OperationID]; !mine {
			continue
		}

		switch ev.Kind {
		case deps.EventState:
			fmt.Fprintf(out, "%s: %s\n", ev.Dependency, ev.State)
		case deps.EventProgress:
			if ev.Percent/10 > shown[ev.OperationID]/10 {
				shown[ev.OperationID] = ev.Percent
				fmt.Fprintf(out, "%s: %3d%%\n", ev.Dependency, ev.Percent)
			}
		case deps.EventFinished:
			results[ev.Dependency] = ev
			fmt.Fprintln(out, formatResult(ev))
		}
	}

	return results
}

// formatResult renders a finished event as a one-line summary.
func formatResult(ev deps.Event) string {
	symbol := "✓"
	if !ev.Success {
		symbol = "✗"
	}
	if ev.Message == "" {
		return fmt.Sprintf("%s %s: %s", symbol, ev.Dependency, ev.Reason)
	}
	return fmt.Sprintf("%s %s: %s (%s)", symbol, ev.Dependency, ev.Reason, ev.Message)
}
