package commands

import (
	"strings"

	"gallery-backend/domain/template"
	apperrors "gallery-backend/pkg/errors"
)

// PublishScenarioCommand appends a sanitized submission to the catalog
type PublishScenarioCommand struct {
	MakeScenarioURL string
	Title           string
	Description     string
	Instructions    string
	Apps            string
	Category        string
	IframeURL       string
	ButtonURL       string
	UseCase         string
	Complexity      string
	Tags            []string
	CreatedDate     string
	// SubmittedBy is the authenticated user ID, empty for anonymous submissions
	SubmittedBy string
}

// Validate checks the fields a record cannot be built without
func (c PublishScenarioCommand) Validate() error {
	if strings.TrimSpace(c.MakeScenarioURL) == "" {
		return apperrors.NewValidationError("makeScenarioUrl is required").WithCode(apperrors.CodeInvalidURL)
	}
	if strings.TrimSpace(c.Title) == "" {
		return apperrors.NewValidationError("title is required")
	}
	return nil
}

// Submission converts the command into the domain input
func (c PublishScenarioCommand) Submission() template.Submission {
	return template.Submission{
		MakeScenarioURL: c.MakeScenarioURL,
		Title:           c.Title,
		Description:     c.Description,
		Instructions:    c.Instructions,
		Apps:            c.Apps,
		Category:        c.Category,
		IframeURL:       c.IframeURL,
		ButtonURL:       c.ButtonURL,
		UseCase:         c.UseCase,
		Complexity:      c.Complexity,
		Tags:            c.Tags,
		CreatedDate:     c.CreatedDate,
		SubmittedBy:     c.SubmittedBy,
	}
}

// PublishResult identifies the record a publish created
type PublishResult struct {
	ScenarioID string
	Slug       string
	Version    string
	Attempts   int
}
