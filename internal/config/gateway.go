package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const GatewayEnvPrefix = "FCGI_GATEWAY"

// Gateway is the configuration of the development front-end.
type Gateway struct {
	Handler     string
	DocRoot     string
	SocketDir   string
	ListenAddr  string
	IdleTimeout time.Duration

	// BackendNetwork and BackendAddr, when set, name a running FastCGI
	// server to forward to instead of spawning Handler.
	BackendNetwork string
	BackendAddr    string

	LogLevel string
}

// GatewayFlags registers the gateway's flags on fs.
func GatewayFlags(fs *pflag.FlagSet) {
	fs.String("handler", "", "Path of the FastCGI handler binary to spawn")
	fs.String("doc-root", "/web", "Root directory requested paths are translated into")
	fs.String("socket-dir", "/tmp/fcgi-sockets", "Directory for the handler socket")
	fs.String("listen-addr", ":8080", "Address for the gateway to listen on (e.g., :8080)")
	fs.Duration("idle-timeout", 5*time.Minute, "Stop the handler after this long without requests (0 disables)")
	fs.String("backend", "", "Forward to a running FastCGI server, as network:address (e.g., tcp:127.0.0.1:9000)")
	fs.String("log-level", "info", "Log level: trace, debug, info, warn or error")
}

// LoadGateway builds and validates the gateway configuration from v.
func LoadGateway(v *viper.Viper) (*Gateway, error) {
	cfg := &Gateway{
		Handler:     v.GetString("handler"),
		DocRoot:     v.GetString("doc-root"),
		SocketDir:   v.GetString("socket-dir"),
		ListenAddr:  v.GetString("listen-addr"),
		IdleTimeout: v.GetDuration("idle-timeout"),
		LogLevel:    v.GetString("log-level"),
	}

	if backend := v.GetString("backend"); backend != "" {
		network, addr, ok := strings.Cut(backend, ":")
		if !ok || addr == "" || (network != "tcp" && network != "unix") {
			return nil, fmt.Errorf("invalid backend %q, want tcp:ADDR or unix:PATH", backend)
		}
		cfg.BackendNetwork, cfg.BackendAddr = network, addr
	} else if cfg.Handler == "" {
		return nil, errors.New("either --handler or --backend is required")
	}

	if cfg.Handler != "" {
		abs, err := filepath.Abs(cfg.Handler)
		if err != nil {
			return nil, fmt.Errorf("resolve handler path: %w", err)
		}
		cfg.Handler = abs
	}
	if cfg.DocRoot != "" {
		cfg.DocRoot = filepath.Clean(cfg.DocRoot)
	}
	if cfg.IdleTimeout < 0 {
		return nil, fmt.Errorf("idle timeout must not be negative: %s", cfg.IdleTimeout)
	}
	return cfg, nil
}
