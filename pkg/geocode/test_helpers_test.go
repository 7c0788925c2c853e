package geocode

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/time/rate"
)

// unlimited never blocks.
func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newProviderServer starts an httptest server closed with the test.
func newProviderServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// redirectClient sends every request to srv, keeping the original path and
// query. It lets providers with a fixed endpoint run against a test server.
func redirectClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	return &http.Client{Transport: redirectTransport{base: http.DefaultTransport, target: target}}
}

type redirectTransport struct {
	base   http.RoundTripper
	target *url.URL
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.base.RoundTrip(out)
}
