package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/count-circles/internal/cluster"
	"github.com/ironsheep/count-circles/internal/logging"
)

func (a *app) workerCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve distributed accumulation tasks over TCP",
		Long: `Worker listens for coordinator connections and votes on the column
partitions it is sent. Start one worker per machine and pass their addresses
to detect or bench with --mode distributed --worker-addr host:port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cluster.NewWorker(a.settings.Threads, logging.Component(a.log, "worker"))
			return cluster.ListenAndServe(cmd.Context(), listen, w)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", ":7878", "Address to listen on")
	return cmd
}
