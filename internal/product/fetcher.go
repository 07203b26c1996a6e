// Package product fetches and normalizes product pages from the storefront.
package product

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/cache"
	"github.com/theladymaker/atelier/internal/model"
)

// maxBodyBytes bounds how much of a response is read from the storefront.
const maxBodyBytes = 4 << 20

// Source fetches a product record for a URL.
type Source interface {
	Fetch(ctx context.Context, rawURL string) (*model.ProductRecord, error)
}

// Options configures the Fetcher.
type Options struct {
	AllowedDomain string
	UserAgent     string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Fetcher implements Source with a structured-first, markup-fallback strategy.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// NewFetcher creates a Fetcher. Zero options fall back to the storefront defaults.
func NewFetcher(opts Options) *Fetcher {
	if opts.AllowedDomain == "" {
		opts.AllowedDomain = "theladymaker.com"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.Timeout,
				}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
			},
		}
	}
	return &Fetcher{client: client, opts: opts}
}

// structuredDocument is the envelope served at <product-url>.json.
type structuredDocument struct {
	Product model.ProductMetadata `json:"product"`
}

// Fetch returns the product at rawURL. A page without any description text
// is not an error: the record carries model.NoTextFound instead.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.ProductRecord, error) {
	if !f.Allowed(rawURL) {
		return nil, &FetchError{Kind: KindDomainRejected, URL: rawURL}
	}

	canonical := CanonicalURL(rawURL)
	log := zap.L().With(zap.String("url", canonical))
	title := model.DefaultProductTitle

	var (
		text string
		meta *model.ProductMetadata
	)

	doc, err := f.fetchStructured(ctx, canonical+".json")
	if err != nil {
		log.Debug("structured fetch failed, falling back to markup", zap.Error(err))
	} else {
		if doc.Product.Title != "" {
			title = doc.Product.Title
		}
		text, err = htmlToText(doc.Product.BodyHTML)
		if err != nil {
			log.Debug("structured body unreadable", zap.Error(err))
		}
		if text != "" {
			meta = &doc.Product
		}
	}

	if text == "" {
		pageTitle, pageText, err := f.fetchPage(ctx, canonical)
		if err != nil {
			return nil, err
		}
		if pageTitle != "" {
			title = pageTitle
		}
		text = pageText
	}

	desc := CleanDescription(text)
	if desc == "" {
		log.Info("no product text found", zap.String("title", title))
		desc = model.NoTextFound
	}

	return &model.ProductRecord{
		URL:         canonical,
		Title:       title,
		Description: desc,
		Metadata:    meta,
	}, nil
}

// Allowed reports whether rawURL belongs to the allowed storefront domain.
func (f *Fetcher) Allowed(rawURL string) bool {
	if !strings.Contains(rawURL, f.opts.AllowedDomain) {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain := strings.ToLower(f.opts.AllowedDomain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// CanonicalURL drops the query string, fragment and trailing slash.
func CanonicalURL(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return strings.TrimRight(rawURL, "/")
}

func (f *Fetcher) fetchStructured(ctx context.Context, jsonURL string) (*structuredDocument, error) {
	resp, err := f.get(ctx, jsonURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("product: structured fetch status %d", resp.StatusCode)
	}

	var doc structuredDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "product: decode structured document")
	}
	return &doc, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (string, string, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return "", "", &FetchError{Kind: KindNetwork, URL: pageURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		sniff, _ := io.ReadAll(io.LimitReader(resp.Body, blockSniffBytes))
		block := DetectBlock(resp, sniff)
		if block != BlockNone {
			zap.L().Warn("storefront blocked the request", zap.String("url", pageURL), zap.String("block", string(block)))
		}
		return "", "", &FetchError{Kind: KindSite, URL: pageURL, Status: resp.StatusCode, Block: block}
	}

	title, text, err := parsePage(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", &FetchError{Kind: KindNetwork, URL: pageURL, Err: err}
	}
	return title, text, nil
}

func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, eris.Wrap(err, "product: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, eris.Wrap(err, "product: fetch")
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the per-request timeout when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// Cached memoizes a Source in a session cache.
type Cached struct {
	src   Source
	cache *cache.Cache
}

// NewCached wraps src so identical canonical URLs are fetched once per cache lifetime.
func NewCached(src Source, c *cache.Cache) *Cached {
	return &Cached{src: src, cache: c}
}

// Fetch returns the cached record for the canonical URL or fetches it.
// Failures are not cached.
func (c *Cached) Fetch(ctx context.Context, rawURL string) (*model.ProductRecord, error) {
	key, err := cache.Key("product.Fetch", CanonicalURL(rawURL))
	if err != nil {
		return nil, err
	}
	v, err := c.cache.Do(key, func() (any, error) {
		return c.src.Fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.ProductRecord), nil
}
