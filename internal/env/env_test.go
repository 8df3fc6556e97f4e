package env

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMapEnviron(t *testing.T) {
	m := Map{"B": "2", "A": "1", "C": "x=y"}
	want := []string{"A=1", "B=2", "C=x=y"}
	if got := m.Environ(); !reflect.DeepEqual(got, want) {
		t.Errorf("Environ() = %v, want %v", got, want)
	}

	if v, ok := m.Lookup("C"); !ok || v != "x=y" {
		t.Errorf("Lookup(C) = %q, %v", v, ok)
	}
	if _, ok := m.Lookup("D"); ok {
		t.Errorf("Lookup(D) reported a missing key as present")
	}
}

func TestParse(t *testing.T) {
	m := Parse([]string{"A=1", "B", "A=2", "C=a=b"})
	want := Map{"A": "2", "B": "", "C": "a=b"}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("Parse() = %v, want %v", m, want)
	}
}

func TestProcess(t *testing.T) {
	t.Setenv("APACHE_FILE_HANDLER_TEST", "yes")

	p := Process()
	if got := Get(p, "APACHE_FILE_HANDLER_TEST"); got != "yes" {
		t.Errorf("Get() = %q, want yes", got)
	}
	if got, want := len(p.Environ()), len(os.Environ()); got != want {
		t.Errorf("len(Environ()) = %d, want %d", got, want)
	}
}

func TestFromRequest(t *testing.T) {
	root := filepath.FromSlash("/srv/www")

	tests := []struct {
		name       string
		target     string
		opts       Options
		wantInfo   string
		hasInfo    bool
		wantTransl string
		hasTransl  bool
	}{
		{
			name:     "whole path is PATH_INFO",
			target:   "/docs/a.txt",
			wantInfo: "/docs/a.txt",
			hasInfo:  true,
		},
		{
			name:     "script name is stripped",
			target:   "/simple.fcgi/docs/a.txt",
			opts:     Options{ScriptName: "/simple.fcgi"},
			wantInfo: "/docs/a.txt",
			hasInfo:  true,
		},
		{
			name:   "root path without PATH_TRANSLATED has no PATH_INFO",
			target: "/",
		},
		{
			name:       "doc root translates",
			target:     "/docs/a.txt?x=1",
			opts:       Options{DocRoot: root},
			wantInfo:   "/docs/a.txt",
			hasInfo:    true,
			wantTransl: filepath.Join(root, "docs", "a.txt"),
			hasTransl:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			m := FromRequest(r, tt.opts)

			info, ok := m.Lookup(PathInfo)
			if ok != tt.hasInfo || info != tt.wantInfo {
				t.Errorf("PATH_INFO = %q (%v), want %q (%v)", info, ok, tt.wantInfo, tt.hasInfo)
			}
			transl, ok := m.Lookup(PathTranslated)
			if ok != tt.hasTransl || transl != tt.wantTransl {
				t.Errorf("PATH_TRANSLATED = %q (%v), want %q (%v)", transl, ok, tt.wantTransl, tt.hasTransl)
			}
			if got := m[RequestMethod]; got != "GET" {
				t.Errorf("REQUEST_METHOD = %q", got)
			}
		})
	}
}

func TestFromRequestHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/x?a=b", nil)
	r.Header.Set("User-Agent", "probe")
	r.Header.Set("Content-Type", "text/plain")
	r.Header.Add("X-Multi", "1")
	r.Header.Add("X-Multi", "2")
	r.RemoteAddr = "10.0.0.1:4321"

	m := FromRequest(r, Options{Software: "apache-file-handler"})

	checks := map[string]string{
		"HTTP_USER_AGENT": "probe",
		"HTTP_X_MULTI":    "1, 2",
		ContentType:       "text/plain",
		QueryString:       "a=b",
		RemoteAddr:        "10.0.0.1",
		RemotePort:        "4321",
		HTTPHost:          "example.com",
		GatewayInterface:  "CGI/1.1",
		ServerSoftware:    "apache-file-handler",
	}
	for k, want := range checks {
		if got := m[k]; got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if _, ok := m["HTTP_CONTENT_TYPE"]; ok {
		t.Errorf("Content-Type leaked as HTTP_CONTENT_TYPE")
	}
}

func TestPathInfo(t *testing.T) {
	tests := []struct {
		urlPath    string
		scriptName string
		translated bool
		want       string
	}{
		{"", "", false, ""},
		{"", "", true, ""},
		{"/", "", false, ""},
		{"/", "", true, "/"},
		{"/a.txt", "", false, "/a.txt"},
		{"/simple.fcgi", "/simple.fcgi", true, ""},
		{"/simple.fcgi/", "/simple.fcgi", false, ""},
		{"/simple.fcgi/", "/simple.fcgi", true, "/"},
		{"/simple.fcgi/a.txt", "/simple.fcgi", false, "/a.txt"},
	}

	for _, tt := range tests {
		if got := pathInfo(tt.urlPath, tt.scriptName, tt.translated); got != tt.want {
			t.Errorf("pathInfo(%q, %q, %v) = %q, want %q", tt.urlPath, tt.scriptName, tt.translated, got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	root := filepath.FromSlash("/srv/www")
	tests := []struct {
		logical string
		want    string
	}{
		{"/a.txt", filepath.Join(root, "a.txt")},
		{"a.txt", filepath.Join(root, "a.txt")},
		{"/../../etc/passwd", filepath.Join(root, "etc", "passwd")},
		{"/docs/./b/../c.txt", filepath.Join(root, "docs", "c.txt")},
	}
	for _, tt := range tests {
		if got := Translate(root, tt.logical); got != tt.want {
			t.Errorf("Translate(%q) = %q, want %q", tt.logical, got, tt.want)
		}
	}
}
