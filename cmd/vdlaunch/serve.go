package main

import (
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/httpapi"
)

// DefaultAddr is the listen address of `vdlaunch serve`.
const DefaultAddr = "127.0.0.1:8787"

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dependency status and operations over HTTP",
		Long: `Serve exposes the dependencies over HTTP until interrupted:

  GET  /api/dependencies               status of every dependency
  GET  /api/dependencies/{name}        status of one dependency
  POST /api/dependencies/{name}/install
  POST /api/dependencies/{name}/update
  GET  /metrics                        Prometheus metrics
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			board := httpapi.NewStatusBoard(a.Logger)
			go board.Run(a.Manager.Events())

			router := httpapi.NewRouter(a.Manager, board, httpapi.Options{
				Logger:   a.Logger,
				Metrics:  httpapi.NewMetrics(a.Registry),
				Gatherer: a.Registry,
			})

			err = httpapi.Serve(cmd.Context(), addr, router, a.Logger)
			a.Manager.Close()
			<-board.Done()
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", DefaultAddr, "Listen address")
	return cmd
}
