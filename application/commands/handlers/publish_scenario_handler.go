package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gallery-backend/application/commands"
	"gallery-backend/application/commands/bus"
	"gallery-backend/application/ports"
	domainconfig "gallery-backend/domain/config"
	"gallery-backend/domain/events"
	"gallery-backend/domain/template"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Logger interface for flexible logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DefaultPublishAttempts bounds retries after a version conflict
const DefaultPublishAttempts = 3

// PublishScenarioHandler runs the publish sequence against the document store.
// Duplicate check, id and slug all come from the snapshot whose version
// guards the write, so a concurrent publish surfaces as a version conflict
// and the whole sequence is retried.
type PublishScenarioHandler struct {
	store       ports.DocumentStore
	mirror      ports.TemplateMirror
	publisher   ports.EventPublisher
	cache       ports.CatalogCache
	gallery     *domainconfig.GalleryConfig
	metrics     *observability.Collector
	tracer      *observability.Tracer
	logger      Logger
	maxAttempts int
	now         func() time.Time
}

// PublishOption customises a PublishScenarioHandler
type PublishOption func(*PublishScenarioHandler)

// WithMirror enables the best-effort mirror upsert after each publish
func WithMirror(m ports.TemplateMirror) PublishOption {
	return func(h *PublishScenarioHandler) { h.mirror = m }
}

// WithEventPublisher enables TemplatePublished events
func WithEventPublisher(p ports.EventPublisher) PublishOption {
	return func(h *PublishScenarioHandler) { h.publisher = p }
}

// WithCatalogCache clears c after each publish
func WithCatalogCache(c ports.CatalogCache) PublishOption {
	return func(h *PublishScenarioHandler) { h.cache = c }
}

// WithMetrics records publish outcomes on m
func WithMetrics(m *observability.Collector) PublishOption {
	return func(h *PublishScenarioHandler) { h.metrics = m }
}

// WithMaxAttempts overrides DefaultPublishAttempts
func WithMaxAttempts(n int) PublishOption {
	return func(h *PublishScenarioHandler) {
		if n > 0 {
			h.maxAttempts = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) PublishOption {
	return func(h *PublishScenarioHandler) { h.now = now }
}

// NewPublishScenarioHandler creates a publish handler
func NewPublishScenarioHandler(store ports.DocumentStore, gallery *domainconfig.GalleryConfig, logger Logger, opts ...PublishOption) *PublishScenarioHandler {
	h := &PublishScenarioHandler{
		store:       store,
		gallery:     gallery,
		tracer:      observability.NewTracer("gallery/publish"),
		logger:      logger,
		maxAttempts: DefaultPublishAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle implements bus.CommandHandler
func (h *PublishScenarioHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	publishCmd, ok := cmd.(commands.PublishScenarioCommand)
	if !ok {
		return nil, fmt.Errorf("invalid command type %T", cmd)
	}
	return h.Publish(ctx, publishCmd)
}

// Publish runs the sequence, retrying from the top on a version conflict
func (h *PublishScenarioHandler) Publish(ctx context.Context, cmd commands.PublishScenarioCommand) (*commands.PublishResult, error) {
	ctx, span := h.tracer.Start(ctx, "publish_scenario",
		attribute.String("scenario.url", cmd.MakeScenarioURL))
	defer span.End()

	sub := cmd.Submission()
	scenarioID := template.ExtractScenarioID(sub.MakeScenarioURL)
	if scenarioID == "" {
		h.metrics.ObservePublish("invalid", 0)
		return nil, apperrors.NewValidationError("Could not extract scenario ID from URL").
			WithCode(apperrors.CodeNoScenarioID)
	}

	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		rec, version, err := h.attempt(ctx, sub, scenarioID)
		if errors.Is(err, ports.ErrVersionConflict) {
			h.logger.Info("Templates document changed during publish, retrying",
				"attempt", attempt,
				"scenarioID", scenarioID,
			)
			continue
		}
		if err != nil {
			observability.RecordError(span, err)
			h.metrics.ObservePublish(outcomeFor(err), attempt)
			return nil, err
		}

		h.afterPublish(ctx, rec, version)
		h.metrics.ObservePublish("published", attempt)
		span.SetAttributes(attribute.String("template.id", rec.ID), attribute.Int("publish.attempts", attempt))

		h.logger.Info("Scenario published",
			"templateID", rec.ID,
			"slug", rec.Slug,
			"scenarioID", scenarioID,
			"version", version,
			"attempts", attempt,
		)

		return &commands.PublishResult{
			ScenarioID: rec.ID,
			Slug:       rec.Slug,
			Version:    version,
			Attempts:   attempt,
		}, nil
	}

	err := apperrors.NewConflictError("The template catalog changed while publishing. Please try again.").
		WithCode(apperrors.CodeVersionConflict).
		AsRetryable().
		WithCause(ports.ErrVersionConflict)
	observability.RecordError(span, err)
	h.metrics.ObservePublish("conflict", h.maxAttempts)
	return nil, err
}

// attempt performs one read-check-assign-write pass over a single snapshot
func (h *PublishScenarioHandler) attempt(ctx context.Context, sub template.Submission, scenarioID string) (template.Template, string, error) {
	snap, err := h.store.Read(ctx)
	if err != nil {
		return template.Template{}, "", apperrors.NewStoreError("read", err).WithCode(apperrors.CodeStoreRead)
	}

	if dup, found := snap.Templates.FindDuplicate(scenarioID, sub.MakeScenarioURL); found {
		return template.Template{}, "", apperrors.NewConflictError("This scenario has already been submitted").
			WithCode(apperrors.CodeDuplicateSubmission).
			WithDetail("slug", dup.Slug)
	}

	id := template.NextID(snap.Templates.IDs())
	slug := template.UniqueSlug(template.Slugify(sub.Title), snap.Templates.Slugs())

	rec := template.NewFromSubmission(id, slug, sub, template.Defaults{
		PreviewImage: h.gallery.PlaceholderImage,
		Categories:   h.gallery.Categories,
	}, h.now())

	updated := make(template.Collection, 0, len(snap.Templates)+1)
	updated = append(updated, snap.Templates...)
	updated = append(updated, rec)

	version, err := h.store.Write(ctx, updated, snap.Version, h.gallery.CommitMessageFor(rec.Title))
	if errors.Is(err, ports.ErrVersionConflict) {
		return template.Template{}, "", err
	}
	if err != nil {
		return template.Template{}, "", apperrors.NewStoreError("write", err).WithCode(apperrors.CodeStoreWrite)
	}

	return rec, version, nil
}

// afterPublish runs the side effects that must not fail a committed publish
func (h *PublishScenarioHandler) afterPublish(ctx context.Context, rec template.Template, version string) {
	if h.mirror != nil {
		err := h.mirror.Upsert(ctx, ports.NewMirrorRow(rec))
		h.metrics.ObserveMirrorUpsert("publish", err)
		if err != nil {
			// The reconciler copies the record on its next run.
			h.logger.Error("Failed to mirror published template",
				"error", err,
				"templateID", rec.ID,
			)
		}
	}

	if h.publisher != nil {
		event := events.NewTemplatePublished(rec.ID, rec.Slug, rec.Title, rec.Category,
			rec.MakeScenarioID, rec.SubmittedBy, version, h.now())
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.Error("Failed to publish domain event",
				"error", err,
				"eventType", event.GetEventType(),
				"templateID", rec.ID,
			)
		}
	}

	if h.cache != nil {
		if err := h.cache.Clear(ctx); err != nil {
			h.logger.Error("Failed to clear catalog cache", "error", err)
		}
	}
}

func outcomeFor(err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeDuplicateSubmission):
		return "duplicate"
	case apperrors.IsType(err, apperrors.ErrorTypeStore):
		return "store_error"
	default:
		return "error"
	}
}
