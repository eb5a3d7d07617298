package ports

import (
	"context"
	"errors"

	"gallery-backend/domain/events"
	"gallery-backend/domain/template"
)

// MetadataSource resolves a shared-scenario URL into its public metadata
type MetadataSource interface {
	FetchScenario(ctx context.Context, sourceURL string) (*ScenarioMetadata, error)
}

// ColorSource supplies icon background colors keyed by app identifier.
// It is advisory: failures yield an empty map, never an error.
type ColorSource interface {
	IconColors(ctx context.Context, sourceURL string) map[string]string
}

// Moderator screens free text against the content policy
type Moderator interface {
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}

// SubmissionValidator reviews a submission and suggests improvements
type SubmissionValidator interface {
	Validate(ctx context.Context, review SubmissionReview) (*ValidationResult, error)
}

// Enhancer produces supplementary metadata for a submission
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*Enhancement, error)
}

// Categorizer suggests a category; it falls back to the catch-all on failure
type Categorizer interface {
	Categorize(ctx context.Context, description, apps string) string
}

// ErrVersionConflict is returned by DocumentStore.Write when the expected
// version is no longer current.
var ErrVersionConflict = errors.New("document version conflict")

// Snapshot is the templates document as read at one version
type Snapshot struct {
	Templates template.Collection
	// Version is empty when the document does not exist yet
	Version string
}

// DocumentStore persists the whole templates collection as one document
// guarded by a version token.
type DocumentStore interface {
	Read(ctx context.Context) (Snapshot, error)
	// Write replaces the document only if its version still equals
	// expectedVersion and returns the new version.
	Write(ctx context.Context, templates template.Collection, expectedVersion, message string) (string, error)
}

// TemplateMirror is the relational copy of published templates.
// It is eventually consistent with the DocumentStore.
type TemplateMirror interface {
	Upsert(ctx context.Context, row MirrorRow) error
	ListByUser(ctx context.Context, userID string) ([]MirrorRow, error)
	// Fingerprints returns a content hash per template id
	Fingerprints(ctx context.Context) (map[string]string, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// CatalogCache caches catalog reads
type CatalogCache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	Clear(ctx context.Context) error
}
