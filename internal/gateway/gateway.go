// Package gateway is a development front-end that plays the web server
// for the file handler: it turns HTTP requests for documents into
// FastCGI requests carrying PATH_INFO and PATH_TRANSLATED.
package gateway

import (
	"io"
	"net/http"

	"github.com/phuslu/log"
	fcgiclient "github.com/tomasen/fcgi_client"
)

type Gateway struct {
	DocRoot string
	// Handler is reported as SCRIPT_FILENAME; may be empty.
	Handler string
	Backend Backend
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if hidden(r.URL.Path) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		log.Warn().Str("path", r.URL.Path).Msg("refused hidden path")
		return
	}

	network, addr, err := g.Backend.Addr()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Error().Err(err).Msg("no FastCGI backend")
		return
	}

	fcgi, err := fcgiclient.Dial(network, addr)
	if err != nil {
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		log.Error().Err(err).Str("addr", addr).Msg("failed to connect to handler")
		return
	}
	defer fcgi.Close()

	resp, err := fcgi.Request(Params(r, g.DocRoot, g.Handler), r.Body)
	if err != nil {
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		log.Error().Err(err).Msg("FastCGI request failed")
		return
	}

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug().Err(err).Msg("failed to copy response body")
	}
}
