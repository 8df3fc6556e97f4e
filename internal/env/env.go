// Package env exposes the CGI-style variables of a single request.
package env

import (
	"os"
	"sort"
	"strings"
)

// CGI variable names used across the handler and the gateway.
const (
	PathInfo         = "PATH_INFO"
	PathTranslated   = "PATH_TRANSLATED"
	DocumentRoot     = "DOCUMENT_ROOT"
	ScriptName       = "SCRIPT_NAME"
	ScriptFilename   = "SCRIPT_FILENAME"
	RequestMethod    = "REQUEST_METHOD"
	RequestURI       = "REQUEST_URI"
	QueryString      = "QUERY_STRING"
	ServerProtocol   = "SERVER_PROTOCOL"
	ServerSoftware   = "SERVER_SOFTWARE"
	GatewayInterface = "GATEWAY_INTERFACE"
	ContentType      = "CONTENT_TYPE"
	ContentLength    = "CONTENT_LENGTH"
	RemoteAddr       = "REMOTE_ADDR"
	RemotePort       = "REMOTE_PORT"
	HTTPS            = "HTTPS"
	HTTPHost         = "HTTP_HOST"
)

// Env is a read-only view of the variables a request was served with.
type Env interface {
	Lookup(key string) (string, bool)
	// Environ returns NAME=VALUE entries.
	Environ() []string
}

// Get returns the value of key, or "" when it is unset.
func Get(e Env, key string) string {
	v, _ := e.Lookup(key)
	return v
}

// Map is an Env backed by a plain map. Environ is sorted by name.
type Map map[string]string

func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Environ() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out
}

// Parse builds a Map from NAME=VALUE entries. Entries without '=' are
// kept with an empty value; later duplicates win.
func Parse(entries []string) Map {
	m := make(Map, len(entries))
	for _, entry := range entries {
		k, v, _ := strings.Cut(entry, "=")
		m[k] = v
	}
	return m
}

type process struct{}

// Process returns the Env of the running process, in host order.
func Process() Env {
	return process{}
}

func (process) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (process) Environ() []string {
	return os.Environ()
}
