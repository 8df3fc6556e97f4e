// Package server runs the request loop of the file handler.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/phuslu/log"
	"github.com/valyala/bytebufferpool"

	"github.com/cjungmann/apache-file-handler/internal/connector"
	"github.com/cjungmann/apache-file-handler/internal/env"
	"github.com/cjungmann/apache-file-handler/internal/page"
)

// Server answers one request at a time. Its counter lives as long as
// the process and is never reset.
type Server struct {
	pid   int
	count atomic.Int64
	opts  page.Options
}

// New returns a Server for the current process with a zero counter.
func New(opts page.Options) *Server {
	return &Server{
		pid:  os.Getpid(),
		opts: opts,
	}
}

// PID is the process id reported on every page.
func (s *Server) PID() int {
	return s.pid
}

// Count is the number of responses generated so far.
func (s *Server) Count() int {
	return int(s.count.Load())
}

// Serve accepts and answers requests until the connector is closed, fails
// or ctx is done. All of these are a normal shutdown.
func (s *Server) Serve(ctx context.Context, c connector.Connector) error {
	log.Info().Int("pid", s.pid).Bool("env_dump", s.opts.EnvDump).Msg("serving requests")

	for {
		req, err := c.Accept(ctx)
		if err != nil {
			if errors.Is(err, connector.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info().Int("pid", s.pid).Int("responses", s.Count()).Msg("no more requests")
				return nil
			}
			log.Warn().Err(err).Int("pid", s.pid).Int("responses", s.Count()).Msg("accept failed, shutting down")
			return nil
		}

		s.Respond(req)
		req.Finish()
	}
}

// Respond writes the full response for req. Rendering problems show up
// in the page itself; a failed write is only logged.
func (s *Server) Respond(req *connector.Request) {
	n := s.count.Add(1)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	page.Render(buf, page.Info{PID: s.pid, Count: int(n)}, req.Env, s.opts)

	h := req.W.Header()
	h.Set("Content-Type", page.ContentType)
	req.W.WriteHeader(http.StatusOK)
	if _, err := req.W.Write(buf.B); err != nil {
		log.Debug().Err(err).Str("path_info", env.Get(req.Env, env.PathInfo)).Msg("write response failed")
	}

	log.Debug().Int64("count", n).Str("path_info", env.Get(req.Env, env.PathInfo)).Int("bytes", buf.Len()).Msg("response written")
}
