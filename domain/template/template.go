package template

import (
	"strings"
	"time"
)

// Complexity is the difficulty tier shown on a template card
type Complexity string

const (
	ComplexityBeginner     Complexity = "Beginner"
	ComplexityIntermediate Complexity = "Intermediate"
	ComplexityAdvanced     Complexity = "Advanced"
)

// ParseComplexity normalizes free text into a known tier.
// Unknown values map to Intermediate, the default used for new submissions.
func ParseComplexity(s string) Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return ComplexityBeginner
	case "advanced":
		return ComplexityAdvanced
	default:
		return ComplexityIntermediate
	}
}

// Status values for a template record
const (
	StatusPublished = "published"
)

// DateLayout is the calendar date format of createdAt
const DateLayout = "2006-01-02"

// AnonymousSubmitter is recorded when no identity accompanies a submission
const AnonymousSubmitter = "anonymous"

// Template is the catalog-facing record of a published scenario.
// Field names match the persisted templates document.
type Template struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	FullDescription string     `json:"fullDescription"`
	PreviewImage    string     `json:"previewImage"`
	Category        string     `json:"category"`
	Tags            []string   `json:"tags"`
	Complexity      Complexity `json:"complexity"`
	UseCase         string     `json:"useCase"`
	CreatedAt       string     `json:"createdAt"`

	MakeScenarioURL string   `json:"makeScenarioUrl,omitempty"`
	MakeScenarioID  string   `json:"makeScenarioId,omitempty"`
	MakeIframeURL   string   `json:"makeIframeUrl,omitempty"`
	MakeApps        []string `json:"makeApps,omitempty"`
	SubmittedBy     string   `json:"submittedBy,omitempty"`
	SubmittedAt     string   `json:"submittedAt,omitempty"`
	Status          string   `json:"status,omitempty"`
	AIEnhanced      bool     `json:"aiEnhanced,omitempty"`

	// Hand-curated catalog entries carry these; community submissions do not.
	SetupInstructions []string `json:"setupInstructions,omitempty"`
	ConfigOptions     []string `json:"configOptions,omitempty"`
	RelatedTemplates  []string `json:"relatedTemplates,omitempty"`
}

// Submission is the sanitized, possibly AI-suggested input to publishing
type Submission struct {
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
	SubmittedBy     string
}

// Defaults applied to records built from a submission
type Defaults struct {
	PreviewImage string
	Categories   []string
}

// NewFromSubmission assembles a full record from a submission.
// The caller supplies the id and slug already resolved against the collection.
func NewFromSubmission(id, slug string, sub Submission, defaults Defaults, now time.Time) Template {
	apps := SplitApps(sub.Apps)

	tags := AppTags(apps)
	for _, tag := range sub.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !contains(tags, tag) {
			tags = append(tags, tag)
		}
	}

	useCase := strings.TrimSpace(sub.UseCase)
	if useCase == "" {
		useCase = UseCaseFromDescription(sub.Description)
	}

	createdAt := sub.CreatedDate
	if createdAt == "" {
		createdAt = now.UTC().Format(DateLayout)
	}

	submittedBy := sub.SubmittedBy
	if submittedBy == "" {
		submittedBy = AnonymousSubmitter
	}

	return Template{
		ID:              id,
		Slug:            slug,
		Title:           sub.Title,
		Description:     sub.Description,
		FullDescription: fullDescription(sub),
		PreviewImage:    defaults.PreviewImage,
		Category:        NormalizeCategory(sub.Category, defaults.Categories),
		Tags:            tags,
		Complexity:      ParseComplexity(sub.Complexity),
		UseCase:         useCase,
		CreatedAt:       createdAt,
		MakeScenarioURL: sub.MakeScenarioURL,
		MakeScenarioID:  ExtractScenarioID(sub.MakeScenarioURL),
		MakeIframeURL:   sub.IframeURL,
		MakeApps:        apps,
		SubmittedBy:     submittedBy,
		SubmittedAt:     now.UTC().Format(time.RFC3339),
		Status:          StatusPublished,
		AIEnhanced:      true,
	}
}

func fullDescription(sub Submission) string {
	if sub.Instructions == "" {
		return sub.Description
	}
	return sub.Description + "\n\n" + sub.Instructions
}

// UseCaseFromDescription returns the first sentence of a description
func UseCaseFromDescription(description string) string {
	if i := strings.Index(description, "."); i > 0 {
		return strings.TrimSpace(description[:i])
	}
	return strings.TrimSpace(description)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
