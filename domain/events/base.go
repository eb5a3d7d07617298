package events

import "time"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// EventTypeTemplatePublished is the detail type of TemplatePublished
const EventTypeTemplatePublished = "template.published"

// TemplatePublished is raised once a template is committed to the document store
type TemplatePublished struct {
	BaseEvent
	TemplateID      string `json:"template_id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	MakeScenarioID  string `json:"make_scenario_id"`
	SubmittedBy     string `json:"submitted_by"`
	DocumentVersion string `json:"document_version"`
}

// NewTemplatePublished creates a TemplatePublished event
func NewTemplatePublished(templateID, slug, title, category, scenarioID, submittedBy, version string, timestamp time.Time) TemplatePublished {
	return TemplatePublished{
		BaseEvent: BaseEvent{
			AggregateID: templateID,
			EventType:   EventTypeTemplatePublished,
			Timestamp:   timestamp,
			Version:     1,
		},
		TemplateID:      templateID,
		Slug:            slug,
		Title:           title,
		Category:        category,
		MakeScenarioID:  scenarioID,
		SubmittedBy:     submittedBy,
		DocumentVersion: version,
	}
}
