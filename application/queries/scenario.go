package queries

import (
	"strings"

	apperrors "gallery-backend/pkg/errors"
)

// FetchScenarioQuery resolves a shared-scenario URL into prefilled metadata
type FetchScenarioQuery struct {
	URL string
	// Enhance asks for a suggested category alongside the metadata
	Enhance bool
}

// Validate applies the shape checks made before any network call
func (q FetchScenarioQuery) Validate() error {
	if strings.TrimSpace(q.URL) == "" {
		return apperrors.NewValidationError("Make.com scenario URL is required").
			WithCode(apperrors.CodeInvalidURL)
	}
	if !strings.Contains(q.URL, "make.com/public/shared-scenario") {
		return apperrors.NewValidationError("Invalid Make.com scenario URL. Must be a shared scenario URL.").
			WithCode(apperrors.CodeInvalidScenarioURL)
	}
	return nil
}

// ValidateSubmissionQuery screens a sanitized submission. It reads no state
// of its own but calls two remote services.
type ValidateSubmissionQuery struct {
	Title       string
	Description string
	Apps        string
	Category    string
}

// Validate implements bus.Query
func (q ValidateSubmissionQuery) Validate() error {
	if strings.TrimSpace(q.Title) == "" || strings.TrimSpace(q.Description) == "" {
		return apperrors.NewValidationError("Title and description are required")
	}
	return nil
}

// ModerationText is the text sent to moderation
func (q ValidateSubmissionQuery) ModerationText() string {
	return q.Title + "\n\n" + q.Description
}

// EnhanceMetadataQuery asks for supplementary metadata
type EnhanceMetadataQuery struct {
	Title        string
	Description  string
	Instructions string
	Apps         string
}

// Validate implements bus.Query
func (q EnhanceMetadataQuery) Validate() error {
	if q.Title == "" || q.Description == "" {
		return apperrors.NewValidationError("Title and description are required")
	}
	return nil
}
