// Command fcgi-echo is an Apache file handler demo: for every request it
// reports the first line of the requested file and, optionally, the
// request environment.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cjungmann/apache-file-handler/internal/config"
	"github.com/cjungmann/apache-file-handler/internal/connector"
	"github.com/cjungmann/apache-file-handler/internal/env"
	"github.com/cjungmann/apache-file-handler/internal/logging"
	"github.com/cjungmann/apache-file-handler/internal/page"
	"github.com/cjungmann/apache-file-handler/internal/server"
	"github.com/cjungmann/apache-file-handler/internal/transport"
)

const software = "apache-file-handler"

func main() {
	cmd := &cobra.Command{
		Use:   "fcgi-echo [socket-path]",
		Short: "Echo the first line of the requested file over FastCGI",
		Long: `fcgi-echo answers FastCGI requests with an HTML page showing the first line
of the file named by PATH_TRANSLATED.

By default the FastCGI listening socket is expected on stdin, as web servers
launch FastCGI applications. A socket path argument makes it listen on that
unix socket instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.ServerFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v, err := config.Bind(cmd.Flags(), config.ServerEnvPrefix)
		if err != nil {
			return err
		}
		cfg, err := config.LoadServer(v, args, os.Getenv)
		if err != nil {
			return err
		}
		logging.Setup(cfg.LogLevel)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, cfg)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("fcgi-echo failed")
	}
}

func run(ctx context.Context, cfg *config.Server) error {
	mode := cfg.Mode()
	opts := env.Options{ScriptName: cfg.ScriptName, DocRoot: cfg.DocRoot, Software: software}

	envFunc := func(r *http.Request) env.Env { return env.FromRequest(r, opts) }
	if mode == config.ModeCGI {
		envFunc = func(*http.Request) env.Env { return env.Process() }
	}

	conn := connector.NewHandler(envFunc)
	srv := server.New(page.Options{EnvDump: cfg.EnvDump})
	router := transport.Router(conn)

	log.Info().Str("mode", mode.String()).Int("pid", srv.PID()).Msg("starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, conn)
	})
	g.Go(func() error {
		// Whatever way the transport ends, there are no more requests.
		defer conn.Close()

		switch mode {
		case config.ModeCGI:
			return transport.ServeCGI(router)
		case config.ModeHTTP:
			return transport.ServeHTTP(ctx, cfg.ListenAddr, router)
		}

		l, err := transport.Listen(cfg)
		if err != nil {
			return err
		}
		if mode == config.ModeSocket {
			defer os.Remove(cfg.Socket)
		}
		return transport.ServeFastCGI(ctx, l, router)
	})
	return g.Wait()
}
