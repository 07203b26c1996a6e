package product

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

// storefront serves handler and routes every outbound request to it,
// regardless of the host in the request URL.
type storefront struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newStorefront(t *testing.T, handler http.HandlerFunc) *storefront {
	t.Helper()
	sf := &storefront{}
	sf.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sf.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(sf.srv.Close)
	return sf
}

func (sf *storefront) client() *http.Client {
	target, _ := url.Parse(sf.srv.URL)
	return &http.Client{Transport: &rewriteTransport{target: target}}
}

type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}
