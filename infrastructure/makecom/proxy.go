package makecom

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/sanitize"
)

// maxImageBytes bounds a proxied image
const maxImageBytes = 1 << 20

// Image is a proxied image body
type Image struct {
	Body        io.ReadCloser
	ContentType string
}

// maxImageRedirects bounds the redirect chain of a proxied image
const maxImageRedirects = 3

var errRedirectNotAllowed = errors.New("redirect leaves the image allow-list")

// ImageProxy fetches app icons from allow-listed hosts so the browser never
// loads them cross-origin. A host is allowed when it is a listed domain or a
// subdomain of one, on every hop of a redirect chain.
type ImageProxy struct {
	http    *http.Client
	allowed []string
}

// NewImageProxy creates an ImageProxy for the given host allow-list. The
// client is copied; its redirect policy is replaced.
func NewImageProxy(client *http.Client, allowed []string) *ImageProxy {
	if client == nil {
		client = http.DefaultClient
	}
	p := &ImageProxy{allowed: allowed}
	c := *client
	c.CheckRedirect = p.checkRedirect
	p.http = &c
	return p
}

func (p *ImageProxy) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxImageRedirects {
		return errRedirectNotAllowed
	}
	if req.URL.Scheme != "https" || !sanitize.HostWithin(req.URL.Hostname(), p.allowed) {
		return errRedirectNotAllowed
	}
	return nil
}

// Fetch returns the image at raw. The caller closes Body.
func (p *ImageProxy) Fetch(ctx context.Context, raw string) (*Image, error) {
	code := apperrors.CodeInvalidURL
	safe, err := sanitize.URL(raw, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid image URL").WithCode(code).WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, safe, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid image URL").WithCode(code).WithCause(err)
	}
	if !sanitize.HostWithin(req.URL.Hostname(), p.allowed) {
		return nil, apperrors.NewValidationError("Image host is not allowed").WithCode(code).
			WithCause(sanitize.ErrDomainNotAllowed)
	}

	resp, err := p.http.Do(req)
	if errors.Is(err, errRedirectNotAllowed) {
		return nil, apperrors.NewValidationError("Image host is not allowed").WithCode(code).WithCause(err)
	}
	if err != nil {
		return nil, apperrors.NewUpstreamError("image host", 0, err).WithCode(apperrors.CodeUpstreamFetch)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, apperrors.NewUpstreamError("image host", resp.StatusCode, nil).WithCode(apperrors.CodeUpstreamFetch)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		resp.Body.Close()
		return nil, apperrors.NewValidationError("URL does not point to an image").WithCode(apperrors.CodeInvalidURL)
	}

	return &Image{
		Body:        readCloser{Reader: io.LimitReader(resp.Body, maxImageBytes), Closer: resp.Body},
		ContentType: contentType,
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
