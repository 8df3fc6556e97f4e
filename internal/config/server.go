package config

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ServerEnvPrefix = "FCGI_ECHO"

// Mode is the transport the handler receives requests over.
type Mode int

const (
	ModeStdin Mode = iota
	ModeSocket
	ModeTCP
	ModeSystemd
	ModeCGI
	ModeHTTP
)

func (m Mode) String() string {
	switch m {
	case ModeStdin:
		return "fastcgi-stdin"
	case ModeSocket:
		return "fastcgi-socket"
	case ModeTCP:
		return "fastcgi-tcp"
	case ModeSystemd:
		return "fastcgi-systemd"
	case ModeCGI:
		return "cgi"
	case ModeHTTP:
		return "http"
	}
	return "unknown"
}

// Server is the configuration of the file handler.
type Server struct {
	Socket      string
	ListenAddr  string
	FastCGIAddr string
	Systemd     bool
	CGI         bool
	ScriptName  string
	DocRoot     string
	EnvDump     bool
	LogLevel    string
}

// ServerFlags registers the handler flags on fs.
func ServerFlags(fs *pflag.FlagSet) {
	fs.String("listen-addr", "", "Serve plain HTTP on this address instead of FastCGI (development)")
	fs.String("fastcgi-addr", "", "Accept FastCGI connections on this TCP address")
	fs.Bool("systemd", false, "Accept FastCGI connections on the first systemd-activated socket")
	fs.Bool("cgi", false, "Serve a single CGI request from the process environment")
	fs.String("script-name", "", "URL prefix of the handler, stripped to obtain PATH_INFO")
	fs.String("doc-root", "", "Document root used to derive PATH_TRANSLATED when the server sends none")
	fs.Bool("env-dump", false, "Append the unescaped request environment to every page; off by default (unsafe, debugging only)")
	fs.String("log-level", "info", "Log level: trace, debug, info, warn or error")
}

var errTooManyModes = errors.New("only one of socket path, --listen-addr, --fastcgi-addr, --systemd and --cgi may be given")

// LoadServer reads the handler configuration. args are the positional
// arguments; the first one, if any, is a unix socket path. getenv is
// consulted to detect a plain CGI launch.
func LoadServer(v *viper.Viper, args []string, getenv func(string) string) (*Server, error) {
	cfg := &Server{
		ListenAddr:  v.GetString("listen-addr"),
		FastCGIAddr: v.GetString("fastcgi-addr"),
		Systemd:     v.GetBool("systemd"),
		CGI:         v.GetBool("cgi"),
		ScriptName:  strings.TrimSuffix(v.GetString("script-name"), "/"),
		DocRoot:     v.GetString("doc-root"),
		EnvDump:     v.GetBool("env-dump"),
		LogLevel:    v.GetString("log-level"),
	}
	if len(args) > 1 {
		return nil, errors.New("at most one socket path may be given")
	}
	if len(args) == 1 {
		cfg.Socket = args[0]
	}

	n := 0
	for _, set := range []bool{cfg.Socket != "", cfg.ListenAddr != "", cfg.FastCGIAddr != "", cfg.Systemd, cfg.CGI} {
		if set {
			n++
		}
	}
	if n > 1 {
		return nil, errTooManyModes
	}
	if n == 0 && getenv != nil && getenv("REQUEST_METHOD") != "" {
		cfg.CGI = true
	}
	return cfg, nil
}

// Mode reports the transport selected by cfg.
func (cfg *Server) Mode() Mode {
	switch {
	case cfg.CGI:
		return ModeCGI
	case cfg.ListenAddr != "":
		return ModeHTTP
	case cfg.Socket != "":
		return ModeSocket
	case cfg.FastCGIAddr != "":
		return ModeTCP
	case cfg.Systemd:
		return ModeSystemd
	}
	return ModeStdin
}
