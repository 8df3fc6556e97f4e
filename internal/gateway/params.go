package gateway

import (
	"fmt"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/cjungmann/apache-file-handler/internal/env"
)

const serverSoftware = "apache-file-handler-gateway"

// Params builds the FastCGI parameters for r the way Apache does for a
// file handler: PATH_INFO is the requested path and PATH_TRANSLATED its
// location under docRoot. handler may be empty when it is not known.
func Params(r *http.Request, docRoot, handler string) map[string]string {
	logical := path.Clean("/" + r.URL.Path)

	p := map[string]string{
		env.GatewayInterface: "CGI/1.1",
		env.ServerSoftware:   serverSoftware,
		env.ServerProtocol:   r.Proto,
		env.RequestMethod:    r.Method,
		env.RequestURI:       r.URL.RequestURI(),
		env.QueryString:      r.URL.RawQuery,
		env.ContentType:      r.Header.Get("Content-Type"),
		env.ContentLength:    fmt.Sprintf("%d", max(r.ContentLength, 0)),
		env.DocumentRoot:     docRoot,
		env.PathInfo:         logical,
		env.PathTranslated:   env.Translate(docRoot, logical),
		env.HTTPHost:         r.Host,
	}
	if handler != "" {
		p[env.ScriptFilename] = handler
		p[env.ScriptName] = "/cgi-bin/" + filepath.Base(handler)
	}
	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		p[env.RemoteAddr] = host
		p[env.RemotePort] = port
	} else {
		p[env.RemoteAddr] = r.RemoteAddr
	}
	if host, port, err := net.SplitHostPort(r.Host); err == nil {
		p["SERVER_NAME"] = host
		p["SERVER_PORT"] = port
	} else {
		p["SERVER_NAME"] = r.Host
	}
	if r.TLS != nil {
		p[env.HTTPS] = "on"
	}

	for name, headers := range r.Header {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if key == "HTTP_CONTENT_TYPE" || key == "HTTP_CONTENT_LENGTH" || key == "HTTP_PROXY" {
			continue
		}
		p[key] = strings.Join(headers, ", ")
	}
	return p
}

// hidden reports whether a URL path names a dot file or dot directory.
func hidden(urlPath string) bool {
	return strings.Contains(urlPath, "/.")
}
