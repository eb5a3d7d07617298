package makecom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf16"

	"gallery-backend/application/ports"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// maxPageBytes bounds how much of a share page is scanned for colors
const maxPageBytes = 2 << 20

// HashColor derives a stable HSL color from an app identifier. It matches
// the colors the gallery frontend has always generated for unknown icons.
func HashColor(id string) string {
	var hash int64
	for _, c := range utf16.Encode([]rune(id)) {
		shifted := int64(int32(uint32(hash) << 5))
		hash = int64(c) + (shifted - hash)
	}

	hue := abs(hash % 360)
	saturation := 65 + abs(hash)%20
	lightness := 45 + abs(int64(int32(uint32(hash))>>8))%15

	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// PageColorSource reads icon background colors from the public share page
type PageColorSource struct {
	client *http.Client
	logger *zap.Logger
}

// NewPageColorSource creates a PageColorSource
func NewPageColorSource(client *http.Client, logger *zap.Logger) *PageColorSource {
	return &PageColorSource{client: client, logger: logger}
}

// IconColors implements ports.ColorSource. Any failure yields an empty map.
func (s *PageColorSource) IconColors(ctx context.Context, sourceURL string) map[string]string {
	colors := make(map[string]string)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return colors
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("Icon color scrape failed", zap.String("url", sourceURL), zap.Error(err))
		return colors
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Debug("Icon color scrape got non-success status",
			zap.String("url", sourceURL),
			zap.Int("status", resp.StatusCode),
		)
		return colors
	}

	return parseIconColors(io.LimitReader(resp.Body, maxPageBytes))
}

// parseIconColors pairs each pkg-icon container's background color with the
// package id of the next package image after it.
func parseIconColors(r io.Reader) map[string]string {
	colors := make(map[string]string)
	z := html.NewTokenizer(r)
	pending := ""

	for {
		switch z.Next() {
		case html.ErrorToken:
			return colors
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "div":
				if !strings.Contains(attr(tok, "class"), "pkg-icon") {
					continue
				}
				if color := backgroundColor(attr(tok, "style")); color != "" {
					pending = color
				}
			case "img":
				if pending == "" {
					continue
				}
				if id := packageID(attr(tok, "src")); id != "" {
					colors[id] = pending
					pending = ""
				}
			}
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func backgroundColor(style string) string {
	const prop = "background-color:"
	i := strings.Index(style, prop)
	if i < 0 {
		return ""
	}
	value := style[i+len(prop):]
	if j := strings.Index(value, ";"); j >= 0 {
		value = value[:j]
	}
	return strings.TrimSpace(value)
}

// packageID extracts "google-email" from ".../packages/google-email_64.png"
func packageID(src string) string {
	const marker = "packages/"
	i := strings.Index(src, marker)
	if i < 0 {
		return ""
	}
	rest := src[i+len(marker):]
	j := strings.Index(rest, "_")
	if j <= 0 {
		return ""
	}
	return rest[:j]
}

// NoColors is a ColorSource that never scrapes
type NoColors struct{}

// IconColors implements ports.ColorSource
func (NoColors) IconColors(context.Context, string) map[string]string { return map[string]string{} }

var (
	_ ports.ColorSource = (*PageColorSource)(nil)
	_ ports.ColorSource = NoColors{}
)
