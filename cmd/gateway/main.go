// Command gateway is a development web server for fcgi-echo. It maps
// request paths onto a document root and forwards them to the handler
// over FastCGI, the way Apache runs a file handler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cjungmann/apache-file-handler/internal/config"
	"github.com/cjungmann/apache-file-handler/internal/gateway"
	"github.com/cjungmann/apache-file-handler/internal/logging"
	"github.com/cjungmann/apache-file-handler/internal/transport"
)

func main() {
	cmd := &cobra.Command{
		Use:           "gateway --handler PATH [flags]",
		Short:         "Serve a document root through a FastCGI file handler",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.GatewayFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v, err := config.Bind(cmd.Flags(), config.GatewayEnvPrefix)
		if err != nil {
			return err
		}
		cfg, err := config.LoadGateway(v)
		if err != nil {
			return err
		}
		logging.Setup(cfg.LogLevel)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, cfg)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("gateway failed")
	}
}

func run(ctx context.Context, cfg *config.Gateway) error {
	info, err := os.Stat(cfg.DocRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("document root %s is not a directory", cfg.DocRoot)
	}

	g, ctx := errgroup.WithContext(ctx)

	gw := &gateway.Gateway{DocRoot: cfg.DocRoot, Handler: cfg.Handler}
	if cfg.BackendAddr != "" {
		gw.Backend = gateway.Static{Network: cfg.BackendNetwork, Address: cfg.BackendAddr}
	} else {
		spawner := gateway.NewSpawner(cfg.Handler, cfg.SocketDir, cfg.IdleTimeout)
		gw.Backend = spawner
		g.Go(func() error { return spawner.Run(ctx) })
	}

	g.Go(func() error {
		return transport.ServeHTTP(ctx, cfg.ListenAddr, transport.Router(gw))
	})
	return g.Wait()
}
