package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cgi"
	"net/http/fcgi"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/phuslu/log"

	"github.com/cjungmann/apache-file-handler/internal/config"
)

// Listen opens the FastCGI listener for cfg's mode.
func Listen(cfg *config.Server) (net.Listener, error) {
	switch mode := cfg.Mode(); mode {
	case config.ModeStdin:
		// The web server hands us the listening socket as fd 0.
		l, err := net.FileListener(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("stdin is not a FastCGI socket: %w", err)
		}
		return l, nil
	case config.ModeSocket:
		if err := os.Remove(cfg.Socket); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove old socket %s: %w", cfg.Socket, err)
		}
		l, err := net.Listen("unix", cfg.Socket)
		if err != nil {
			return nil, fmt.Errorf("listen on socket %s: %w", cfg.Socket, err)
		}
		return l, nil
	case config.ModeTCP:
		l, err := net.Listen("tcp", cfg.FastCGIAddr)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", cfg.FastCGIAddr, err)
		}
		return l, nil
	case config.ModeSystemd:
		listeners, err := activation.Listeners()
		if err != nil {
			return nil, fmt.Errorf("systemd activation: %w", err)
		}
		for _, l := range listeners {
			if l != nil {
				return l, nil
			}
		}
		return nil, errors.New("systemd activation: no listening socket passed")
	default:
		return nil, fmt.Errorf("mode %s has no FastCGI listener", mode)
	}
}

// ServeFastCGI serves FastCGI requests on l until l fails or ctx is done.
// A listener closed because of ctx is not an error.
func ServeFastCGI(ctx context.Context, l net.Listener, h http.Handler) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	log.Info().Str("addr", l.Addr().String()).Msg("accepting FastCGI connections")
	err := fcgi.Serve(l, h)
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ServeCGI serves the single request described by the process
// environment, then returns.
func ServeCGI(h http.Handler) error {
	log.Debug().Msg("serving a single CGI request")
	return cgi.Serve(h)
}
