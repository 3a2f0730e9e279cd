package main

import (
	"github.com/spf13/cobra"

	"github.com/neuraloverlay/apex-go-sdk/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket optimization server",
	RunE: func(cmd *cobra.Command, args []string) error {
		optimizer, cleanup, err := buildOptimizer(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := server.New(server.Config{
			Optimizer: optimizer,
			Logger:    logger,
		})
		return srv.Run(cfg.Server.Addr())
	},
}
