package ports

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"gallery-backend/domain/template"
)

// AppIcon describes how to render one app used by a scenario
type AppIcon struct {
	URL   string `json:"url"`
	Color string `json:"color"`
	Name  string `json:"name"`
}

// ScenarioMetadata is the result of fetching a shared scenario
type ScenarioMetadata struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Instructions   string    `json:"instructions"`
	Apps           string    `json:"apps"`
	AppIcons       []AppIcon `json:"appIcons"`
	AuthorName     string    `json:"authorName"`
	Category       string    `json:"category,omitempty"`
	MakeScenarioID string    `json:"makeScenarioId"`
	IframeURL      string    `json:"iframeUrl"`
	ButtonURL      string    `json:"buttonUrl"`
}

// ModerationResult is the outcome of a policy screen
type ModerationResult struct {
	Flagged    bool
	Categories []string
}

// SubmissionReview is the input to AI validation
type SubmissionReview struct {
	Title       string
	Description string
	Apps        string
	Category    string
}

// Quality grades for a reviewed submission
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// ValidationResult is the AI review of a submission
type ValidationResult struct {
	IsValid              bool     `json:"isValid"`
	Quality              string   `json:"quality"`
	Issues               []string `json:"issues"`
	SuggestedTitle       string   `json:"suggestedTitle"`
	SuggestedDescription string   `json:"suggestedDescription"`
	SuggestedCategory    string   `json:"suggestedCategory"`
	Confidence           float64  `json:"confidence"`
}

// EnhanceRequest is the input to metadata enhancement
type EnhanceRequest struct {
	Title        string
	Description  string
	Instructions string
	Apps         string
}

// Enhancement is LLM-generated supplementary metadata
type Enhancement struct {
	UseCase    string              `json:"useCase"`
	Complexity template.Complexity `json:"complexity"`
	Tags       []string            `json:"tags"`
}

// FallbackEnhancement is returned whenever enhancement fails
func FallbackEnhancement() *Enhancement {
	return &Enhancement{
		UseCase:    "Automate workflows and save time",
		Complexity: template.ComplexityIntermediate,
		Tags:       []string{"automation", "productivity", "workflow"},
	}
}

// MirrorRow is a template as stored in the relational mirror
type MirrorRow struct {
	Template    template.Template
	UserID      string
	Fingerprint string
}

// NewMirrorRow builds the mirror row for t. The row is owned by the
// submitter unless the submission was anonymous.
func NewMirrorRow(t template.Template) MirrorRow {
	userID := t.SubmittedBy
	if userID == template.AnonymousSubmitter {
		userID = ""
	}
	return MirrorRow{Template: t, UserID: userID, Fingerprint: Fingerprint(t)}
}

// Fingerprint hashes the canonical JSON encoding of a template
func Fingerprint(t template.Template) string {
	data, _ := json.Marshal(t)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
