// Package page renders the Apache file handler demo page.
package page

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cjungmann/apache-file-handler/internal/env"
)

const (
	Title       = "Apache File Handler Demo"
	ContentType = "text/html"

	// LineBufferSize is the size of the first-line buffer, terminator
	// included. Longer lines are cut, not rejected.
	LineBufferSize = 512
)

// Info is the per-process state shown on every page.
type Info struct {
	PID   int
	Count int
}

type Options struct {
	// EnvDump enables the unescaped environment listing. Only for
	// debugging: values are written verbatim into the HTML.
	EnvDump bool
}

// Render writes the complete HTML body for one request.
func Render(w io.Writer, info Info, e env.Env, opts Options) {
	io.WriteString(w, "<html><head><title>"+Title+"</title></head>\n")
	io.WriteString(w, "<body>\n<h1>"+Title+"</h1>\n")
	fmt.Fprintf(w, "<p>Number of responses for process %d: %d.</p>\n", info.PID, info.Count)

	FileEcho(w, e)

	if opts.EnvDump {
		EnvironmentDump(w, e)
	}

	io.WriteString(w, "</body>\n</html>\n")
}

// FileEcho reports the first line of the file named by PATH_TRANSLATED.
// Every failure is rendered inline.
func FileEcho(w io.Writer, e env.Env) {
	io.WriteString(w, "<h2>Processing File</h2>\n")
	io.WriteString(w, "<p>In process_file: ")

	info, hasInfo := e.Lookup(env.PathInfo)
	path, hasPath := e.Lookup(env.PathTranslated)

	if !hasInfo || !hasPath || info == "" || path == "" {
		io.WriteString(w, "unknown file</p>\n")
		return
	}

	line, opened, err := ReadFirstLine(path, LineBufferSize-1)
	switch {
	case !opened:
		fmt.Fprintf(w, "<h2>Failed to open \"%s\"</h2>\n", info)
	case err != nil:
		fmt.Fprintf(w, "opened file \"%s\" empty file", info)
	default:
		fmt.Fprintf(w, "opened file \"%s\" contents=\"%s\"", info, line)
	}

	io.WriteString(w, "</p>\n")
}

// ReadFirstLine reads at most limit bytes of the first line of path,
// without the line terminator. opened reports whether the file could be
// opened at all; err is io.EOF for an empty file.
func ReadFirstLine(path string, limit int) (line string, opened bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(io.LimitReader(f, int64(limit)), limit)
	s, err := r.ReadString('\n')
	if s == "" {
		if err == nil {
			err = io.EOF
		}
		return "", true, err
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, true, nil
}

// EnvironmentDump lists every entry of e, one item each, unescaped.
func EnvironmentDump(w io.Writer, e env.Env) {
	io.WriteString(w, "<h2>CGI Environment listing</h2>\n<ul>\n")
	for _, entry := range e.Environ() {
		io.WriteString(w, "<li>")
		io.WriteString(w, entry)
		io.WriteString(w, "</li>\n")
	}
	io.WriteString(w, "</ul>\n")
}
