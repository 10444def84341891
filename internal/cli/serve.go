// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medsegkit/segprep/internal/server"
)

func newServeCmd(ro *RootOpts) *cobra.Command {
	var (
		addr     string
		port     int
		output   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for browser-triggered fetches",
		Long: `Start an HTTP server that provides:
  - REST API for fetch jobs (model, datasets, CLIP)
  - WebSocket for live progress updates
  - A small dashboard page

The output root is configured server-side only (not via API).

Example:
  segprep serve
  segprep serve --port 3000 --output /data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.Config{
				Addr:       addr,
				Port:       port,
				OutputRoot: output,
				Endpoint:   endpoint,
			}

			srv := server.New(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1", "Address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Directory the layout is created under")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Override the cloud-drive endpoint (mirrors)")

	return cmd
}
