package makecom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"
	"gallery-backend/infrastructure/breaker"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const serviceName = "Make.com API"

// DefaultTitle is used when the scenario has no title
const DefaultTitle = "Untitled Scenario"

// sharedScenarioResponse is the public scenarios-shared payload
type sharedScenarioResponse struct {
	ScenarioShared *struct {
		Title                string   `json:"title"`
		DescriptionShort     string   `json:"descriptionShort"`
		DescriptionLong      string   `json:"descriptionLong"`
		ScenarioUsedPackages []string `json:"scenarioUsedPackages"`
		Name                 string   `json:"name"`
	} `json:"scenarioShared"`
}

// Client fetches shared-scenario metadata from the Make.com public API
type Client struct {
	http         *http.Client
	colors       ports.ColorSource
	cb           *gobreaker.CircuitBreaker
	metrics      *observability.Collector
	tracer       *observability.Tracer
	logger       *zap.Logger
	apiBase      string
	defaultTitle string
}

// Option customises a Client
type Option func(*Client)

// WithAPIBase sends API calls to base instead of the share URL's host
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithMetrics records upstream calls on m
func WithMetrics(m *observability.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithDefaultTitle overrides DefaultTitle
func WithDefaultTitle(title string) Option {
	return func(c *Client) {
		if title != "" {
			c.defaultTitle = title
		}
	}
}

// NewClient creates a Make.com client. colors may be NoColors.
func NewClient(httpClient *http.Client, colors ports.ColorSource, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http:         httpClient,
		colors:       colors,
		cb:           breaker.New(breaker.DefaultConfig("makecom"), logger),
		tracer:       observability.NewTracer("gallery/makecom"),
		logger:       logger,
		defaultTitle: DefaultTitle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchScenario implements ports.MetadataSource
func (c *Client) FetchScenario(ctx context.Context, sourceURL string) (*ports.ScenarioMetadata, error) {
	if !strings.Contains(sourceURL, "public/shared-scenario") {
		return nil, apperrors.NewValidationError("Invalid Make.com scenario URL").
			WithCode(apperrors.CodeInvalidScenarioURL)
	}

	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return nil, apperrors.NewValidationError("Invalid Make.com scenario URL").
			WithCode(apperrors.CodeInvalidScenarioURL).
			WithCause(err)
	}
	host := parsed.Host

	scenarioID := template.ExtractScenarioID(parsed.Path)
	if scenarioID == "" {
		return nil, apperrors.NewValidationError("Could not extract scenario ID from URL").
			WithCode(apperrors.CodeMissingScenarioID)
	}

	ctx, span := c.tracer.Start(ctx, "makecom.fetch_scenario",
		attribute.String("scenario.id", scenarioID),
		attribute.String("scenario.host", host))
	defer span.End()

	apiBase := c.apiBase
	if apiBase == "" {
		apiBase = "https://" + host
	}
	apiURL := fmt.Sprintf("%s/api/v2/public/scenarios-shared/%s", apiBase, url.PathEscape(scenarioID))

	started := time.Now()
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.getShared(ctx, apiURL)
	})
	err = breaker.Error(serviceName, err)
	c.metrics.ObserveUpstream("makecom", "fetch_scenario", started, err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	shared := result.(*sharedScenarioResponse).ScenarioShared

	title := shared.Title
	if title == "" {
		title = c.defaultTitle
	}
	packages := shared.ScenarioUsedPackages
	if packages == nil {
		packages = []string{}
	}

	colors := c.colors.IconColors(ctx, sourceURL)

	icons := make([]ports.AppIcon, 0, len(packages))
	for _, pkg := range packages {
		color, ok := colors[pkg]
		if !ok || color == "" {
			color = HashColor(pkg)
		}
		iconURL := fmt.Sprintf("https://%s/static/img/packages/%s_32.png", host, pkg)
		icons = append(icons, ports.AppIcon{
			URL:   "/api/proxy-image?url=" + url.QueryEscape(iconURL),
			Color: color,
			Name:  pkg,
		})
	}

	c.logger.Debug("Fetched scenario metadata",
		zap.String("scenarioID", scenarioID),
		zap.Int("apps", len(packages)),
		zap.Int("scrapedColors", len(colors)),
	)

	return &ports.ScenarioMetadata{
		Title:          title,
		Description:    shared.DescriptionShort,
		Instructions:   shared.DescriptionLong,
		Apps:           strings.Join(packages, ", "),
		AppIcons:       icons,
		AuthorName:     shared.Name,
		MakeScenarioID: scenarioID,
		IframeURL:      fmt.Sprintf("https://%s/public/shared-scenario/standalone-inspector-previewer/%s", host, scenarioID),
		ButtonURL:      sourceURL,
	}, nil
}

func (c *Client) getShared(ctx context.Context, apiURL string) (*sharedScenarioResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, apperrors.NewUpstreamError(serviceName, 0, err).WithCode(apperrors.CodeUpstreamFetch)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError(serviceName, 0, err).WithCode(apperrors.CodeUpstreamFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewUpstreamError(serviceName, resp.StatusCode, nil).WithCode(apperrors.CodeUpstreamFetch)
	}

	var body sharedScenarioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, schemaError(err)
	}
	if body.ScenarioShared == nil {
		return nil, schemaError(nil)
	}
	return &body, nil
}

func schemaError(cause error) *apperrors.AppError {
	err := apperrors.NewUpstreamError(serviceName, 0, cause).WithCode(apperrors.CodeUpstreamSchema)
	err.Message = "Invalid API response: scenarioShared not found"
	return err
}

var _ ports.MetadataSource = (*Client)(nil)
