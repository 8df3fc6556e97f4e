package env

import (
	"net"
	"net/http"
	"net/http/fcgi"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls how FromRequest fills in variables the web server
// did not send.
type Options struct {
	// ScriptName is stripped from the front of the URL path to obtain
	// PATH_INFO. Empty means the whole path is PATH_INFO, which is what
	// an Apache Action handler sees.
	ScriptName string

	// DocRoot, when set, is used to derive PATH_TRANSLATED from PATH_INFO.
	DocRoot string

	// Software is reported as SERVER_SOFTWARE when the server sent none.
	Software string
}

// FromRequest rebuilds the CGI parameter set of r. Parameters net/http
// consumes while building the request are reconstructed from it; the
// rest come from fcgi.ProcessEnv and always take precedence.
func FromRequest(r *http.Request, opts Options) Map {
	m := Map{
		RequestMethod:  r.Method,
		ServerProtocol: r.Proto,
	}
	if r.RequestURI != "" {
		m[RequestURI] = r.RequestURI
	}
	sent := fcgi.ProcessEnv(r)
	if r.URL != nil {
		m[QueryString] = r.URL.RawQuery
		_, translated := sent[PathTranslated]
		if info := pathInfo(r.URL.Path, opts.ScriptName, translated); info != "" {
			m[PathInfo] = info
		}
		if opts.ScriptName != "" && strings.HasPrefix(r.URL.Path, opts.ScriptName) {
			m[ScriptName] = opts.ScriptName
		}
	}
	if r.Host != "" {
		m[HTTPHost] = r.Host
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		m[ContentType] = ct
	}
	if r.ContentLength > 0 {
		m[ContentLength] = strconv.FormatInt(r.ContentLength, 10)
	}
	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		m[RemoteAddr] = host
		m[RemotePort] = port
	} else if r.RemoteAddr != "" {
		m[RemoteAddr] = r.RemoteAddr
	}
	if r.TLS != nil {
		m[HTTPS] = "on"
	}
	for name, values := range r.Header {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if key == "HTTP_CONTENT_TYPE" || key == "HTTP_CONTENT_LENGTH" {
			continue
		}
		m[key] = strings.Join(values, ", ")
	}

	for k, v := range sent {
		m[k] = v
	}

	if opts.DocRoot != "" {
		if _, ok := m[DocumentRoot]; !ok {
			m[DocumentRoot] = opts.DocRoot
		}
		if _, ok := m[PathTranslated]; !ok {
			if info, ok := m[PathInfo]; ok {
				m[PathTranslated] = Translate(opts.DocRoot, info)
			}
		}
	}
	if _, ok := m[GatewayInterface]; !ok {
		m[GatewayInterface] = "CGI/1.1"
	}
	if _, ok := m[ServerSoftware]; !ok && opts.Software != "" {
		m[ServerSoftware] = opts.Software
	}
	return m
}

// Translate maps a logical path onto root the way a web server computes
// PATH_TRANSLATED. The result never escapes root.
func Translate(root, logical string) string {
	return filepath.Join(root, filepath.FromSlash(path.Clean("/"+logical)))
}

// pathInfo derives PATH_INFO from the URL path. An empty path means the
// server sent none. A bare "/" only counts when the server also sent
// PATH_TRANSLATED, which it never does for a null PATH_INFO.
func pathInfo(urlPath, scriptName string, translated bool) string {
	if scriptName != "" && strings.HasPrefix(urlPath, scriptName) {
		urlPath = strings.TrimPrefix(urlPath, scriptName)
	}
	if urlPath == "/" && !translated {
		return ""
	}
	return urlPath
}
