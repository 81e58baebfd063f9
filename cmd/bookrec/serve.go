// ABOUTME: HTTP server command for bookrec.
// ABOUTME: Serves the API immediately and publishes the catalog index once it is built.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/bookrec/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API and web page.

The listener comes up right away; /healthz reports 503 and /api/recommend
answers 503 until the catalog has been embedded. Stops cleanly on SIGINT
or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :5002)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := globalConfig.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := api.NewServer(api.Options{
		Catalog:   globalCatalog,
		Service:   a.service,
		Metrics:   a.metrics,
		Logger:    globalLogger,
		RateLimit: globalConfig.Server.RateLimit,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, addr)
	})
	g.Go(func() error {
		if err := a.loadIndex(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to build catalog index: %w", err)
		}
		return nil
	})
	return g.Wait()
}
