package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"
	"gallery-backend/infrastructure/breaker"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/observability"

	sdk "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const serviceName = "OpenAI"

// Config for the OpenAI client
type Config struct {
	APIKey          string
	BaseURL         string
	ValidationModel string
	EnhanceModel    string
	CategorizeModel string
	Categories      []string
}

// Client implements the moderation, validation, enhancement and
// categorisation ports against the OpenAI API.
type Client struct {
	api     *sdk.Client
	cfg     Config
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, metrics *observability.Collector, logger *zap.Logger) *Client {
	sdkCfg := sdk.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		sdkCfg.HTTPClient = httpClient
	}
	if cfg.ValidationModel == "" {
		cfg.ValidationModel = "gpt-4-turbo-preview"
	}
	if cfg.EnhanceModel == "" {
		cfg.EnhanceModel = sdk.GPT4
	}
	if cfg.CategorizeModel == "" {
		cfg.CategorizeModel = sdk.GPT3Dot5Turbo
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = template.Categories
	}

	return &Client{
		api:     sdk.NewClientWithConfig(sdkCfg),
		cfg:     cfg,
		cb:      breaker.New(breaker.DefaultConfig("openai"), logger),
		metrics: metrics,
		logger:  logger,
	}
}

// call runs fn behind the breaker and records it
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	started := time.Now()
	result, err := c.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	err = breaker.Error(serviceName, err)
	c.metrics.ObserveUpstream("openai", operation, started, err)
	return result, err
}

// Moderate implements ports.Moderator
func (c *Client) Moderate(ctx context.Context, text string) (*ports.ModerationResult, error) {
	res, err := c.call(ctx, "moderate", func(ctx context.Context) (interface{}, error) {
		resp, err := c.api.Moderations(ctx, sdk.ModerationRequest{Input: text})
		if err != nil {
			return nil, upstreamError(err, apperrors.CodeModerationService, "Content moderation failed")
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := res.(sdk.ModerationResponse)
	if len(resp.Results) == 0 {
		return nil, upstreamError(errors.New("empty moderation result"), apperrors.CodeModerationService, "Content moderation failed")
	}
	result := resp.Results[0]

	categories, err := flaggedCategories(result.Categories)
	if err != nil {
		return nil, upstreamError(err, apperrors.CodeModerationService, "Content moderation failed")
	}

	return &ports.ModerationResult{Flagged: result.Flagged, Categories: categories}, nil
}

// flaggedCategories lists the category names set to true, in key order
func flaggedCategories(categories sdk.ResultCategories) ([]string, error) {
	raw, err := json.Marshal(categories)
	if err != nil {
		return nil, err
	}
	var set map[string]bool
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	out := []string{}
	for name, flagged := range set {
		if flagged {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// validationResponse uses pointers so absent fields take defaults
type validationResponse struct {
	IsValid              *bool     `json:"isValid"`
	Quality              *string   `json:"quality"`
	Issues               *[]string `json:"issues"`
	SuggestedTitle       string    `json:"suggestedTitle"`
	SuggestedDescription string    `json:"suggestedDescription"`
	SuggestedCategory    string    `json:"suggestedCategory"`
	Confidence           *float64  `json:"confidence"`
}

// Validate implements ports.SubmissionValidator
func (c *Client) Validate(ctx context.Context, review ports.SubmissionReview) (*ports.ValidationResult, error) {
	content, err := c.complete(ctx, "validate", sdk.ChatCompletionRequest{
		Model: c.cfg.ValidationModel,
		Messages: []sdk.ChatCompletionMessage{
			{Role: sdk.ChatMessageRoleSystem, Content: validationSystemPrompt},
			{Role: sdk.ChatMessageRoleUser, Content: validationPrompt(review.Title, review.Description, review.Apps, review.Category, c.cfg.Categories)},
		},
		Temperature:    0.3,
		ResponseFormat: &sdk.ChatCompletionResponseFormat{Type: sdk.ChatCompletionResponseFormatTypeJSONObject},
	}, apperrors.CodeValidationService)
	if err != nil {
		return nil, err
	}

	var parsed validationResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, upstreamError(err, apperrors.CodeValidationService, "AI validation failed: response is not valid JSON")
	}

	return applyValidationDefaults(parsed, review), nil
}

func applyValidationDefaults(parsed validationResponse, review ports.SubmissionReview) *ports.ValidationResult {
	result := &ports.ValidationResult{
		IsValid:              true,
		Quality:              ports.QualityMedium,
		Issues:               []string{},
		SuggestedTitle:       firstNonEmpty(parsed.SuggestedTitle, review.Title),
		SuggestedDescription: firstNonEmpty(parsed.SuggestedDescription, review.Description),
		SuggestedCategory:    firstNonEmpty(parsed.SuggestedCategory, review.Category),
		Confidence:           0.8,
	}
	if parsed.IsValid != nil {
		result.IsValid = *parsed.IsValid
	}
	if parsed.Quality != nil {
		result.Quality = *parsed.Quality
	}
	if parsed.Issues != nil && *parsed.Issues != nil {
		result.Issues = *parsed.Issues
	}
	if parsed.Confidence != nil {
		result.Confidence = *parsed.Confidence
	}
	return result
}

// Enhance implements ports.Enhancer
func (c *Client) Enhance(ctx context.Context, req ports.EnhanceRequest) (*ports.Enhancement, error) {
	content, err := c.complete(ctx, "enhance", sdk.ChatCompletionRequest{
		Model: c.cfg.EnhanceModel,
		Messages: []sdk.ChatCompletionMessage{
			{Role: sdk.ChatMessageRoleSystem, Content: enhanceSystemPrompt},
			{Role: sdk.ChatMessageRoleUser, Content: enhancePrompt(req.Title, req.Description, req.Apps, req.Instructions)},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	}, "")
	if err != nil {
		return nil, err
	}

	var out ports.Enhancement
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, upstreamError(err, "", "Metadata enhancement returned invalid JSON")
	}
	if out.UseCase == "" || out.Complexity == "" || out.Tags == nil {
		return nil, upstreamError(errors.New("missing fields"), "", "Invalid metadata format from AI")
	}
	out.Complexity = template.ParseComplexity(string(out.Complexity))

	return &out, nil
}

// Categorize implements ports.Categorizer. Failures yield the catch-all category.
func (c *Client) Categorize(ctx context.Context, description, apps string) string {
	content, err := c.complete(ctx, "categorize", sdk.ChatCompletionRequest{
		Model: c.cfg.CategorizeModel,
		Messages: []sdk.ChatCompletionMessage{
			{Role: sdk.ChatMessageRoleSystem, Content: categorizeSystemPrompt},
			{Role: sdk.ChatMessageRoleUser, Content: categorizePrompt(description, apps, c.cfg.Categories)},
		},
		Temperature: 0,
		MaxTokens:   20,
	}, "")
	if err != nil {
		c.logger.Warn("Categorization failed", zap.Error(err))
		return template.CategoryOther
	}
	return template.NormalizeCategory(content, c.cfg.Categories)
}

// complete runs a chat completion and returns the trimmed first choice
func (c *Client) complete(ctx context.Context, operation string, req sdk.ChatCompletionRequest, code string) (string, error) {
	res, err := c.call(ctx, operation, func(ctx context.Context) (interface{}, error) {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, upstreamError(err, code, "")
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	resp := res.(sdk.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return "", upstreamError(errors.New("no choices"), code, "Empty response from "+serviceName)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", upstreamError(errors.New("empty content"), code, "Empty response from "+serviceName)
	}
	return content, nil
}

// upstreamError wraps an SDK error, keeping the HTTP status when the API
// returned one.
func upstreamError(err error, code, message string) *apperrors.AppError {
	status := 0
	var apiErr *sdk.APIError
	var reqErr *sdk.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	appErr := apperrors.NewUpstreamError(serviceName, status, err)
	if code != "" {
		appErr.WithCode(code)
	}
	switch {
	case message != "" && status != 0:
		appErr.Message = fmt.Sprintf("%s (status %d)", message, status)
	case message != "":
		appErr.Message = message
	}
	return appErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	_ ports.Moderator           = (*Client)(nil)
	_ ports.SubmissionValidator = (*Client)(nil)
	_ ports.Enhancer            = (*Client)(nil)
	_ ports.Categorizer         = (*Client)(nil)
)
