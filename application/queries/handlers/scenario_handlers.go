package handlers

import (
	"context"
	"fmt"
	"strings"

	"gallery-backend/application/ports"
	"gallery-backend/application/queries"
	"gallery-backend/application/queries/bus"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/observability"
)

// FetchScenarioHandler resolves shared-scenario metadata for the submit form
type FetchScenarioHandler struct {
	source      ports.MetadataSource
	categorizer ports.Categorizer
	logger      Logger
}

// NewFetchScenarioHandler creates the handler. categorizer may be nil.
func NewFetchScenarioHandler(source ports.MetadataSource, categorizer ports.Categorizer, logger Logger) *FetchScenarioHandler {
	return &FetchScenarioHandler{source: source, categorizer: categorizer, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *FetchScenarioHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.FetchScenarioQuery)
	if !ok {
		return nil, fmt.Errorf("invalid query type %T", query)
	}

	meta, err := h.source.FetchScenario(ctx, q.URL)
	if err != nil {
		return nil, err
	}

	if q.Enhance && h.categorizer != nil {
		meta.Category = h.categorizer.Categorize(ctx, meta.Description, meta.Apps)
		h.logger.Debug("Suggested category for scenario",
			"scenarioID", meta.MakeScenarioID,
			"category", meta.Category,
		)
	}

	return meta, nil
}

// ValidateSubmissionHandler runs moderation then the AI quality review
type ValidateSubmissionHandler struct {
	moderator ports.Moderator
	validator ports.SubmissionValidator
	logger    Logger
}

// NewValidateSubmissionHandler creates the handler. A nil moderator skips
// moderation; a nil validator reports the service as not configured.
func NewValidateSubmissionHandler(moderator ports.Moderator, validator ports.SubmissionValidator, logger Logger) *ValidateSubmissionHandler {
	return &ValidateSubmissionHandler{moderator: moderator, validator: validator, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *ValidateSubmissionHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ValidateSubmissionQuery)
	if !ok {
		return nil, fmt.Errorf("invalid query type %T", query)
	}
	if h.validator == nil {
		return nil, apperrors.NewConfigurationError("OPENAI_API_KEY")
	}

	if h.moderator != nil {
		moderation, err := h.moderator.Moderate(ctx, q.ModerationText())
		if err != nil {
			return nil, err
		}
		if moderation.Flagged {
			h.logger.Info("Submission flagged by moderation", "categories", moderation.Categories)
			return nil, apperrors.NewPolicyError(fmt.Sprintf("Content violates community guidelines (%s)",
				strings.Join(moderation.Categories, ", "))).
				WithCode(apperrors.CodeModerationFlagged).
				WithDetail("categories", moderation.Categories)
		}
	}

	result, err := h.validator.Validate(ctx, ports.SubmissionReview{
		Title:       q.Title,
		Description: q.Description,
		Apps:        q.Apps,
		Category:    q.Category,
	})
	if err != nil {
		return nil, err
	}

	if !result.IsValid {
		return nil, apperrors.NewPolicyError("Validation failed: "+strings.Join(result.Issues, ", ")).
			WithCode(apperrors.CodeContentRejected).
			WithDetail("issues", result.Issues)
	}

	result.Issues = []string{}
	return result, nil
}

// EnhanceMetadataHandler never fails once the query is valid: any
// enhancement error degrades to ports.FallbackEnhancement.
type EnhanceMetadataHandler struct {
	enhancer ports.Enhancer
	metrics  *observability.Collector
	logger   Logger
}

// NewEnhanceMetadataHandler creates the handler. enhancer may be nil.
func NewEnhanceMetadataHandler(enhancer ports.Enhancer, metrics *observability.Collector, logger Logger) *EnhanceMetadataHandler {
	return &EnhanceMetadataHandler{enhancer: enhancer, metrics: metrics, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *EnhanceMetadataHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.EnhanceMetadataQuery)
	if !ok {
		return nil, fmt.Errorf("invalid query type %T", query)
	}

	if h.enhancer == nil {
		h.metrics.EnhancementFallback()
		return ports.FallbackEnhancement(), nil
	}

	enhancement, err := h.enhancer.Enhance(ctx, ports.EnhanceRequest{
		Title:        q.Title,
		Description:  q.Description,
		Instructions: q.Instructions,
		Apps:         q.Apps,
	})
	if err != nil {
		h.logger.Error("Metadata enhancement failed, using fallback", "error", err)
		h.metrics.EnhancementFallback()
		return ports.FallbackEnhancement(), nil
	}

	return enhancement, nil
}
