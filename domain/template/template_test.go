package template

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNewFromSubmission(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	sub := Submission{
		MakeScenarioURL: "https://eu2.make.com/public/shared-scenario/abc123/leads",
		Title:           "Leads to Sheets",
		Description:     "Copies new leads into a sheet. Runs hourly.",
		Instructions:    "Connect your Google account.",
		Apps:            "Gmail, google-sheets",
		Category:        "productivity",
		IframeURL:       "https://eu2.make.com/public/shared-scenario/standalone-inspector-previewer/abc123",
		Tags:            []string{"Leads", "gmail"},
	}

	got := NewFromSubmission("7", "leads-to-sheets", sub, Defaults{PreviewImage: "/placeholder.svg"}, now)

	want := Template{
		ID:              "7",
		Slug:            "leads-to-sheets",
		Title:           "Leads to Sheets",
		Description:     "Copies new leads into a sheet. Runs hourly.",
		FullDescription: "Copies new leads into a sheet. Runs hourly.\n\nConnect your Google account.",
		PreviewImage:    "/placeholder.svg",
		Category:        "Productivity",
		Tags:            []string{"gmail", "google-sheets", "leads"},
		Complexity:      ComplexityIntermediate,
		UseCase:         "Copies new leads into a sheet",
		CreatedAt:       "2025-03-14",
		MakeScenarioURL: sub.MakeScenarioURL,
		MakeScenarioID:  "abc123",
		MakeIframeURL:   sub.IframeURL,
		MakeApps:        []string{"Gmail", "google-sheets"},
		SubmittedBy:     AnonymousSubmitter,
		SubmittedAt:     "2025-03-14T09:30:00Z",
		Status:          StatusPublished,
		AIEnhanced:      true,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewFromSubmission mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFromSubmissionKeepsExplicitFields(t *testing.T) {
	now := time.Now()
	sub := Submission{
		Title:       "X",
		Description: "No sentence end",
		Category:    "Unheard Of",
		Complexity:  "advanced",
		UseCase:     "Custom use case",
		CreatedDate: "2024-01-01",
		SubmittedBy: "user-42",
	}

	got := NewFromSubmission("1", "x", sub, Defaults{}, now)

	assert.Equal(t, ComplexityAdvanced, got.Complexity)
	assert.Equal(t, "Custom use case", got.UseCase)
	assert.Equal(t, "2024-01-01", got.CreatedAt)
	assert.Equal(t, "user-42", got.SubmittedBy)
	assert.Equal(t, CategoryOther, got.Category)
	assert.Equal(t, "No sentence end", got.FullDescription)
	assert.Empty(t, got.MakeScenarioID)
}

func TestNormalizeCategoryCustomList(t *testing.T) {
	allowed := []string{"Sales", "Other"}
	assert.Equal(t, "Sales", NormalizeCategory("sales", allowed))
	assert.Equal(t, "Other", NormalizeCategory("Marketing", allowed))
}

func TestUseCaseFromDescription(t *testing.T) {
	assert.Equal(t, "First", UseCaseFromDescription("First. Second."))
	assert.Equal(t, "Whole thing", UseCaseFromDescription(" Whole thing "))
	assert.Equal(t, ".starts with dot", UseCaseFromDescription(".starts with dot"))
}
