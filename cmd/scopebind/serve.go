package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/scopebind/internal/page"
	"github.com/vango-dev/scopebind/pkg/live"
)

func serveCmd(g *globals) *cobra.Command {
	var (
		src   page.Source
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve TEMPLATE",
		Short: "Serve a bound template with live updates",
		Long: `Serve a bound template. Clicks and input in the browser run against the
server-side document, and every change is pushed back over a websocket.

Endpoints:
  /         the bound page
  /ws       live updates
  /metrics  prometheus metrics
  /healthz  liveness

Examples:
  scopebind serve index.html --data data.yaml
  scopebind serve index.html --addr :3000 --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src.Template = args[0]
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watch
			}

			srv, err := live.New(live.Options{
				Source: src,
				Config: cfg,
				Logger: logger,
				Watch:  cfg.Server.Watch,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&src.Data, "data", "d", "", "JSON or YAML data file")
	cmd.Flags().StringVarP(&src.Root, "root", "r", page.DefaultRoot, "Selector of the element to bind")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from configuration, :8080)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload when the template or data file changes")

	return cmd
}
