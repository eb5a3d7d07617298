// Package sanitize strips markup from submitted text and checks submitted URLs
// against scheme and domain allow-lists.
package sanitize

import (
	"errors"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrDomainNotAllowed   = errors.New("domain not allowed")
	ErrSchemeNotAllowed   = errors.New("only HTTPS URLs are allowed")
	ErrMissingScenarioURL = errors.New("makeScenarioUrl is required")
)

// secureScheme is the only scheme accepted for submitted URLs
const secureScheme = "https"

// maxTextPasses bounds how many layers of entity encoding Text peels off
const maxTextPasses = 5

// Sanitizer cleans scenario submissions. It is safe for concurrent use.
type Sanitizer struct {
	policy          *bluemonday.Policy
	scenarioDomains []string
	embedDomains    []string
}

// New creates a Sanitizer. scenarioDomains guards the source scenario URL,
// embedDomains guards the iframe and button URLs.
func New(scenarioDomains, embedDomains []string) *Sanitizer {
	return &Sanitizer{
		policy:          bluemonday.StrictPolicy(),
		scenarioDomains: scenarioDomains,
		embedDomains:    embedDomains,
	}
}

var defaultPolicy = bluemonday.StrictPolicy()

// Text strips every tag and attribute, drops script and style contents,
// and trims the result. The result is plain text, not HTML: entities are
// decoded, and markup hidden behind them is stripped as well. It never fails.
func Text(input string) string {
	return plainText(defaultPolicy, input)
}

// Text strips markup using the sanitizer's policy
func (s *Sanitizer) Text(input string) string {
	return plainText(s.policy, input)
}

func plainText(policy *bluemonday.Policy, input string) string {
	out := input
	for i := 0; i < maxTextPasses; i++ {
		next := html.UnescapeString(policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	// Still decoding to new markup: keep the escaped form.
	return strings.TrimSpace(policy.Sanitize(out))
}

// URL parses raw and checks it against allowed host substrings and the https
// scheme, in that order. An empty allow-list accepts any host.
// The original string is returned unchanged on success.
func URL(raw string, allowed []string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidURL
	}

	if len(allowed) > 0 && !hostAllowed(u.Hostname(), allowed) {
		return "", ErrDomainNotAllowed
	}

	if u.Scheme != secureScheme {
		return "", ErrSchemeNotAllowed
	}

	return raw, nil
}

// HostWithin reports whether host is one of domains or a subdomain of one.
// An empty list allows nothing.
func HostWithin(host string, domains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, domain := range domains {
		domain = strings.ToLower(domain)
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, domain := range allowed {
		if strings.Contains(host, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// ScenarioURL checks a source scenario URL against the scenario allow-list
func (s *Sanitizer) ScenarioURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &FieldError{Field: "makeScenarioUrl", Err: ErrMissingScenarioURL}
	}
	safe, err := URL(raw, s.scenarioDomains)
	if err != nil {
		return "", &FieldError{Field: "makeScenarioUrl", Err: err}
	}
	return safe, nil
}

// ScenarioData is the free-text and URL part of a submission
type ScenarioData struct {
	MakeScenarioURL string
	Title           string
	Description     string
	Instructions    string
	Apps            string
	Category        string
	UseCase         string
	IframeURL       string
	ButtonURL       string
}

// FieldError names the field whose URL failed validation
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// ScenarioData returns a sanitized copy of data. Optional URLs stay empty
// when absent; a present URL that fails validation is reported as a FieldError.
func (s *Sanitizer) ScenarioData(data ScenarioData) (ScenarioData, error) {
	out := ScenarioData{
		Title:        s.Text(data.Title),
		Description:  s.Text(data.Description),
		Instructions: s.Text(data.Instructions),
		Apps:         s.Text(data.Apps),
		Category:     s.Text(data.Category),
		UseCase:      s.Text(data.UseCase),
	}

	scenarioURL, err := s.ScenarioURL(data.MakeScenarioURL)
	if err != nil {
		return ScenarioData{}, err
	}
	out.MakeScenarioURL = scenarioURL

	if data.IframeURL != "" {
		if out.IframeURL, err = URL(data.IframeURL, s.embedDomains); err != nil {
			return ScenarioData{}, &FieldError{Field: "iframeUrl", Err: err}
		}
	}
	if data.ButtonURL != "" {
		if out.ButtonURL, err = URL(data.ButtonURL, s.embedDomains); err != nil {
			return ScenarioData{}, &FieldError{Field: "buttonUrl", Err: err}
		}
	}

	return out, nil
}
