// Package imagery samples and prepares product images for multimodal generation.
package imagery

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/model"
)

const (
	// DefaultWidth is the width requested from the CDN.
	DefaultWidth = 600
	// TransportQuality is the JPEG quality used for the bytes sent to the model.
	TransportQuality = 75

	maxImageBytes = 10 << 20
)

// knownExtensions are matched as substrings of the URL path, in this order.
var knownExtensions = []string{".jpeg", ".jpg", ".png", ".webp", ".gif"}

// Options configures the Sampler.
type Options struct {
	Width      int
	Max        int
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Sampler downloads a bounded set of product images.
type Sampler struct {
	client *http.Client
	opts   Options
}

// NewSampler creates a Sampler. Max is clamped to model.MaxImages.
func NewSampler(opts Options) *Sampler {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Max <= 0 || opts.Max > model.MaxImages {
		opts.Max = model.MaxImages
	}
	if opts.Timeout == 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Sampler{client: client, opts: opts}
}

// Sample returns up to Max images from the metadata's image list, in order.
// Images are best-effort enrichment: the policy is skip-on-failure, so any
// image that cannot be downloaded or decoded is left out and the rest of the
// batch continues. A nil document or empty list yields no images.
func (s *Sampler) Sample(ctx context.Context, meta *model.ProductMetadata) []model.ImageAsset {
	urls := meta.ImageURLs()
	if len(urls) > s.opts.Max {
		urls = urls[:s.opts.Max]
	}

	assets := make([]model.ImageAsset, 0, len(urls))
	for _, src := range urls {
		asset, err := s.Fetch(ctx, src)
		if err != nil {
			zap.L().Debug("image skipped", zap.String("src", src), zap.Error(err))
			continue
		}
		assets = append(assets, *asset)
	}
	return assets
}

// Fetch downloads one image at the reduced width, decodes it and re-encodes
// it as JPEG for transport.
func (s *Sampler) Fetch(ctx context.Context, src string) (*model.ImageAsset, error) {
	fetchURL := ResizeURL(absoluteURL(src), s.opts.Width)
	if err := checkScheme(fetchURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "imagery: create request")
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "imagery: download")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("imagery: status %d from %s", resp.StatusCode, fetchURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "imagery: read body")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "imagery: decode")
	}

	encoded, err := EncodeJPEG(img, TransportQuality)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &model.ImageAsset{
		SourceURL: src,
		FetchURL:  fetchURL,
		Image:     img,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Data:      encoded,
		MIMEType:  "image/jpeg",
	}, nil
}

// ResizeURL rewrites a Shopify CDN image URL to request a width-bounded
// variant ("gown.jpg" -> "gown_600x.jpg"). URLs without a known extension are
// returned unchanged.
func ResizeURL(src string, width int) string {
	path, query := src, ""
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		path, query = src[:i], src[i:]
	}
	lower := strings.ToLower(path)
	for _, ext := range knownExtensions {
		i := strings.LastIndex(lower, ext)
		if i < 0 {
			continue
		}
		return path[:i] + "_" + strconv.Itoa(width) + "x" + path[i:] + query
	}
	return src
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, eris.Wrap(err, "imagery: encode jpeg")
	}
	return buf.Bytes(), nil
}

func absoluteURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

func checkScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return eris.Wrap(err, "imagery: parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return eris.Errorf("imagery: unsupported scheme %q", u.Scheme)
	}
	return nil
}

// Disabled never attaches images. It is used when source.max_images is 0.
type Disabled struct{}

// Sample returns no images.
func (Disabled) Sample(context.Context, *model.ProductMetadata) []model.ImageAsset {
	return nil
}
