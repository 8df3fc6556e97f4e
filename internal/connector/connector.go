// Package connector turns a multiplexing transport into a blocking
// "accept the next request" call served by a single loop.
package connector

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/cjungmann/apache-file-handler/internal/env"
)

// ErrClosed is returned by Accept once no more requests will arrive.
var ErrClosed = errors.New("connector closed")

// Connector hands out requests one at a time.
type Connector interface {
	// Accept blocks until a request is ready, the connector is closed,
	// or ctx is done.
	Accept(ctx context.Context) (*Request, error)
}

// Request is a single accepted request. The acceptor owns W until
// Finish is called.
type Request struct {
	Env env.Env
	W   http.ResponseWriter

	done chan struct{}
	once sync.Once
}

// NewRequest wraps e and w into a request that is not yet finished.
func NewRequest(e env.Env, w http.ResponseWriter) *Request {
	return &Request{Env: e, W: w, done: make(chan struct{})}
}

// Finish releases the request back to the transport.
func (r *Request) Finish() {
	r.once.Do(func() { close(r.done) })
}

// Done is closed once Finish has been called.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// EnvFunc extracts the request environment from an HTTP request.
type EnvFunc func(*http.Request) env.Env

// Handler is an http.Handler whose requests are served by whoever calls
// Accept. Every ServeHTTP call blocks until its request is finished.
type Handler struct {
	envFunc EnvFunc

	ch        chan *Request
	closed    chan struct{}
	closeOnce sync.Once
}

// NewHandler returns an open Handler that builds request environments with fn.
func NewHandler(fn EnvFunc) *Handler {
	return &Handler{
		envFunc: fn,
		ch:      make(chan *Request),
		closed:  make(chan struct{}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(h.envFunc(r), w)

	select {
	case h.ch <- req:
	case <-h.closed:
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	// Handed off: the acceptor writes to w, so wait for it regardless
	// of the client going away.
	<-req.done
}

func (h *Handler) Accept(ctx context.Context) (*Request, error) {
	select {
	case <-h.closed:
		return nil, ErrClosed
	default:
	}

	select {
	case req := <-h.ch:
		return req, nil
	case <-h.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops Accept and rejects requests that have not been handed off.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}
