package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cjungmann/apache-file-handler/internal/connector"
	"github.com/cjungmann/apache-file-handler/internal/env"
	"github.com/cjungmann/apache-file-handler/internal/page"
)

// startServer runs Serve in the background and returns a function that
// performs one request and returns the recorded response.
func startServer(t *testing.T, s *Server, e env.Map) func() *httptest.ResponseRecorder {
	t.Helper()

	h := connector.NewHandler(func(*http.Request) env.Env { return e })
	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), h) }()

	t.Cleanup(func() {
		h.Close()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("Serve() did not return after Close")
		}
	})

	return func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		return rec
	}
}

func TestCounterIncrements(t *testing.T) {
	s := New(page.Options{})
	do := startServer(t, s, env.Map{})

	for i := 1; i <= 5; i++ {
		rec := do()
		want := fmt.Sprintf("<p>Number of responses for process %d: %d.</p>", os.Getpid(), i)
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("request %d: body missing %q", i, want)
		}
	}
	if s.Count() != 5 {
		t.Errorf("Count() = %d, want 5", s.Count())
	}
}

func TestRespondHeaders(t *testing.T) {
	s := New(page.Options{})
	rec := httptest.NewRecorder()
	req := connector.NewRequest(env.Map{}, rec)

	s.Respond(req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "unknown file") {
		t.Errorf("body missing unknown file: %q", rec.Body.String())
	}
}

func TestRepeatedRequestsDifferOnlyInCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	e := env.Map{env.PathInfo: "/hello.txt", env.PathTranslated: path, "SERVER_NAME": "localhost"}

	s := New(page.Options{EnvDump: true})
	do := startServer(t, s, e)

	first := do().Body.String()
	second := do().Body.String()

	prefix := fmt.Sprintf("process %d: ", os.Getpid())
	first = strings.Replace(first, prefix+"1.", prefix+"N.", 1)
	second = strings.Replace(second, prefix+"2.", prefix+"N.", 1)
	if first != second {
		t.Errorf("responses differ beyond the counter:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, `contents="hello"`) {
		t.Errorf("body missing file contents: %q", first)
	}
}

func TestServeStopsOnContext(t *testing.T) {
	s := New(page.Options{})
	h := connector.NewHandler(func(*http.Request) env.Env { return env.Map{} })
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Serve(ctx, h); err != nil {
		t.Errorf("Serve() with canceled context = %v, want nil", err)
	}
}

type failingConnector struct{}

func (failingConnector) Accept(context.Context) (*connector.Request, error) {
	return nil, fmt.Errorf("boom")
}

func TestServeAcceptError(t *testing.T) {
	if err := New(page.Options{}).Serve(context.Background(), failingConnector{}); err != nil {
		t.Errorf("Serve() = %v, want nil on connector failure", err)
	}
}
