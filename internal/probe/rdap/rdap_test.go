package rdap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tldscout/tldscout/internal/probe"
)

func TestParseBootstrap(t *testing.T) {
	t.Parallel()

	b, err := parseBootstrap([]byte(`{
  "services": [
    [["com"], ["https://rdap.example/"]],
    [["de","io"], ["https://rdap.one/","https://rdap.two/"]]
  ]
}`))
	if err != nil {
		t.Fatalf("parseBootstrap: %v", err)
	}

	if got := b.urlsForTLD("com"); len(got) != 1 || got[0] != "https://rdap.example/" {
		t.Fatalf("urlsForTLD(com)=%v", got)
	}

	if got := b.urlsForTLD("DE"); len(got) != 2 {
		t.Fatalf("urlsForTLD(de)=%v", got)
	}
}

func TestCheck_StatusMapping(t *testing.T) {
	t.Parallel()

	reg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/domain/taken.com":
			w.WriteHeader(http.StatusOK)
		case "/domain/free.com":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer reg.Close()

	boot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"services":[[["com"],["` + reg.URL + `/"]]]}`))
	}))
	defer boot.Close()

	p := New(Options{
		BootstrapURL: boot.URL,
		CacheDir:     t.TempDir(),
		Timeout:      2 * time.Second,
	})

	out, err := p.Check(context.Background(), "taken.com")
	if err != nil {
		t.Fatalf("Check(taken.com): %v", err)
	}
	if out.Status != probe.StatusTaken {
		t.Fatalf("status=%q, want taken", out.Status)
	}
	if out.Method != probe.MethodRDAP {
		t.Fatalf("method=%q, want rdap", out.Method)
	}

	out, err = p.Check(context.Background(), "free.com")
	if err != nil {
		t.Fatalf("Check(free.com): %v", err)
	}
	if out.Status != probe.StatusAvailable {
		t.Fatalf("status=%q, want available", out.Status)
	}

	if _, err := p.Check(context.Background(), "broken.com"); err == nil {
		t.Fatalf("Check(broken.com): expected error for http 503")
	}
}

func TestCheck_NoServiceForTLD_Terminal(t *testing.T) {
	t.Parallel()

	boot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services":[]}`))
	}))
	defer boot.Close()

	p := New(Options{BootstrapURL: boot.URL, CacheDir: t.TempDir()})

	_, err := p.Check(context.Background(), "example.nosuchtld")
	if err == nil {
		t.Fatalf("expected error")
	}
	if probe.Retryable(err) {
		t.Fatalf("no-service error should be terminal, got retryable: %v", err)
	}
}
