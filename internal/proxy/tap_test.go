package proxy

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/mckeimic/mitmscripts/internal/classify"
	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/matcher"
	"github.com/mckeimic/mitmscripts/internal/store"
)

func newTap(maxBody int64) (*Tap, *store.Store) {
	s := store.New(nil, nil)
	c := classify.New(matcher.Default(matcher.KeyMaterialConfig{}), nil)
	return New(Config{Classifier: c, Store: s, MaxBodyBytes: maxBody}), s
}

func exchange(t *testing.T, rawURL string, headers http.Header, body string) (*http.Request, *http.Response) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("bad URL: %v", err)
	}
	req := &http.Request{Method: "GET", URL: u, Host: u.Host}
	resp := &http.Response{
		StatusCode: 200,
		Header:     headers,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
	return req, resp
}

func TestObserve_RecordsFindings(t *testing.T) {
	tap, s := newTap(0)
	req, resp := exchange(t, "https://example.com/", http.Header{}, "")

	tap.observe(req, resp)

	hsts := s.Query(func(f finding.Finding) bool { return f.Kind == finding.KindMissingHSTS })
	if len(hsts) != 1 {
		t.Fatalf("expected one missing_hsts finding, got %d", len(hsts))
	}
	if hsts[0].Host != "example.com" {
		t.Errorf("unexpected host %q", hsts[0].Host)
	}
}

func TestObserve_BodyRestoredForClient(t *testing.T) {
	tap, _ := newTap(0)
	h := http.Header{}
	h.Set("Content-Type", "text/html")
	page := `<html><script src="/app.js"></script></html>`
	req, resp := exchange(t, "https://example.com/", h, page)

	tap.observe(req, resp)

	relayed, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read relayed body: %v", err)
	}
	if string(relayed) != page {
		t.Errorf("client body changed by observation:\nwant %q\ngot  %q", page, relayed)
	}
}

func TestObserve_BodyCapTruncatesObservationOnly(t *testing.T) {
	tap, _ := newTap(16)
	body := strings.Repeat("x", 64)
	req, resp := exchange(t, "https://example.com/big", http.Header{}, body)

	tap.observe(req, resp)

	relayed, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read relayed body: %v", err)
	}
	if len(relayed) != 64 {
		t.Errorf("client must receive the full body, got %d bytes", len(relayed))
	}
}

func TestObserve_DuplicateFlowsDeduplicated(t *testing.T) {
	tap, s := newTap(0)

	for i := 0; i < 3; i++ {
		req, resp := exchange(t, "https://example.com/", http.Header{}, "")
		tap.observe(req, resp)
	}

	if n := s.Len(); n != 1 {
		t.Errorf("expected one catalogue record after repeated flows, got %d", n)
	}
}
