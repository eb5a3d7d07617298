package persistence

import (
	"gallery-backend/application/ports"
	"gallery-backend/domain/template"
)

// MirrorTable is the relational table holding mirrored templates
const MirrorTable = "templates"

// MirrorRecord is the column layout of the mirror table
type MirrorRecord struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	FullDescription string   `json:"full_description"`
	PreviewImage    string   `json:"preview_image"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Complexity      string   `json:"complexity"`
	UseCase         string   `json:"use_case"`
	CreatedAt       string   `json:"created_at"`
	MakeScenarioURL string   `json:"make_scenario_url"`
	MakeScenarioID  string   `json:"make_scenario_id"`
	MakeIframeURL   string   `json:"make_iframe_url"`
	MakeApps        []string `json:"make_apps"`
	SubmittedBy     string   `json:"submitted_by"`
	SubmittedAt     string   `json:"submitted_at"`
	Status          string   `json:"status"`
	AIEnhanced      bool     `json:"ai_enhanced"`
	UserID          *string  `json:"user_id"`
	Fingerprint     string   `json:"fingerprint"`
}

// NewMirrorRecord flattens a mirror row into columns.
// An empty user id is stored as NULL.
func NewMirrorRecord(row ports.MirrorRow) MirrorRecord {
	t := row.Template
	rec := MirrorRecord{
		ID:              t.ID,
		Slug:            t.Slug,
		Title:           t.Title,
		Description:     t.Description,
		FullDescription: t.FullDescription,
		PreviewImage:    t.PreviewImage,
		Category:        t.Category,
		Tags:            nonNil(t.Tags),
		Complexity:      string(t.Complexity),
		UseCase:         t.UseCase,
		CreatedAt:       t.CreatedAt,
		MakeScenarioURL: t.MakeScenarioURL,
		MakeScenarioID:  t.MakeScenarioID,
		MakeIframeURL:   t.MakeIframeURL,
		MakeApps:        nonNil(t.MakeApps),
		SubmittedBy:     t.SubmittedBy,
		SubmittedAt:     t.SubmittedAt,
		Status:          t.Status,
		AIEnhanced:      t.AIEnhanced,
		Fingerprint:     row.Fingerprint,
	}
	if row.UserID != "" {
		userID := row.UserID
		rec.UserID = &userID
	}
	return rec
}

// Row converts the record back into a mirror row
func (r MirrorRecord) Row() ports.MirrorRow {
	row := ports.MirrorRow{
		Template: template.Template{
			ID:              r.ID,
			Slug:            r.Slug,
			Title:           r.Title,
			Description:     r.Description,
			FullDescription: r.FullDescription,
			PreviewImage:    r.PreviewImage,
			Category:        r.Category,
			Tags:            r.Tags,
			Complexity:      template.Complexity(r.Complexity),
			UseCase:         r.UseCase,
			CreatedAt:       r.CreatedAt,
			MakeScenarioURL: r.MakeScenarioURL,
			MakeScenarioID:  r.MakeScenarioID,
			MakeIframeURL:   r.MakeIframeURL,
			MakeApps:        r.MakeApps,
			SubmittedBy:     r.SubmittedBy,
			SubmittedAt:     r.SubmittedAt,
			Status:          r.Status,
			AIEnhanced:      r.AIEnhanced,
		},
		Fingerprint: r.Fingerprint,
	}
	if r.UserID != nil {
		row.UserID = *r.UserID
	}
	return row
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
