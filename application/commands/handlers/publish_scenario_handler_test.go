package handlers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"gallery-backend/application/commands"
	"gallery-backend/application/ports"
	domainconfig "gallery-backend/domain/config"
	"gallery-backend/domain/events"
	"gallery-backend/domain/template"
	apperrors "gallery-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// memoryStore is a versioned in-memory document store
type memoryStore struct {
	mu        sync.Mutex
	templates template.Collection
	version   int
	writes    int
	// beforeWrite runs once per Write, before the version check
	beforeWrite func(s *memoryStore)
	readErr     error
}

func (s *memoryStore) Read(_ context.Context) (ports.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return ports.Snapshot{}, s.readErr
	}
	out := make(template.Collection, len(s.templates))
	copy(out, s.templates)
	return ports.Snapshot{Templates: out, Version: strconv.Itoa(s.version)}, nil
}

func (s *memoryStore) Write(_ context.Context, templates template.Collection, expected, _ string) (string, error) {
	if s.beforeWrite != nil {
		s.beforeWrite(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if expected != strconv.Itoa(s.version) {
		return "", ports.ErrVersionConflict
	}
	s.templates = templates
	s.version++
	s.writes++
	return strconv.Itoa(s.version), nil
}

type recordingMirror struct {
	rows []ports.MirrorRow
	err  error
}

func (m *recordingMirror) Upsert(_ context.Context, row ports.MirrorRow) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *recordingMirror) ListByUser(context.Context, string) ([]ports.MirrorRow, error) {
	return m.rows, nil
}

func (m *recordingMirror) Fingerprints(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

type recordingPublisher struct{ events []events.DomainEvent }

func (p *recordingPublisher) Publish(_ context.Context, e events.DomainEvent) error {
	p.events = append(p.events, e)
	return nil
}

func publishCommand(url, title string) commands.PublishScenarioCommand {
	return commands.PublishScenarioCommand{
		MakeScenarioURL: url,
		Title:           title,
		Description:     "Sync new leads. Then notify the team.",
		Apps:            "Slack, Google Sheets",
		Category:        "Marketing",
	}
}

func fixedClock() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestPublishScenarioHandler(t *testing.T) {
	ctx := context.Background()
	gallery := domainconfig.DefaultGalleryConfig()

	t.Run("Should append a record with the next id and a unique slug", func(t *testing.T) {
		store := &memoryStore{templates: template.Collection{
			{ID: "7", Slug: "lead-sync", Title: "Lead Sync"},
		}}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{}, WithClock(fixedClock))

		res, err := h.Handle(ctx, publishCommand("https://eu2.make.com/public/shared-scenario/abc123/lead", "Lead Sync"))
		require.NoError(t, err)

		result := res.(*commands.PublishResult)
		assert.Equal(t, "8", result.ScenarioID)
		assert.Equal(t, "lead-sync-1", result.Slug)
		assert.Equal(t, 1, result.Attempts)

		require.Len(t, store.templates, 2)
		rec := store.templates[1]
		assert.Equal(t, "abc123", rec.MakeScenarioID)
		assert.Equal(t, template.StatusPublished, rec.Status)
		assert.Equal(t, template.AnonymousSubmitter, rec.SubmittedBy)
		assert.Equal(t, []string{"slack", "google sheets"}, rec.Tags)
		assert.Equal(t, gallery.PlaceholderImage, rec.PreviewImage)
	})

	t.Run("Should reject the same source URL a second time even with a new title", func(t *testing.T) {
		store := &memoryStore{}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{})
		url := "https://eu2.make.com/public/shared-scenario/dup42/x"

		_, err := h.Publish(ctx, publishCommand(url, "First"))
		require.NoError(t, err)

		_, err = h.Publish(ctx, publishCommand(url, "Another Title"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateSubmission))
		assert.Equal(t, 409, apperrors.GetAppError(err).HTTPStatus)
		assert.Equal(t, "This scenario has already been submitted", apperrors.GetAppError(err).Message)
		assert.Equal(t, 1, store.writes)
	})

	t.Run("Should fail without a scenario id and never touch the store", func(t *testing.T) {
		store := &memoryStore{readErr: errors.New("must not be read")}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{})

		_, err := h.Publish(ctx, publishCommand("https://make.com/templates/1", "No id"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNoScenarioID))
	})

	t.Run("Should retry the whole sequence after a version conflict", func(t *testing.T) {
		store := &memoryStore{}
		raced := false
		store.beforeWrite = func(s *memoryStore) {
			if raced {
				return
			}
			raced = true
			s.mu.Lock()
			s.templates = append(s.templates, template.Template{
				ID: "1", Slug: "race", MakeScenarioID: "other", MakeScenarioURL: "https://make.com/public/shared-scenario/other",
			})
			s.version++
			s.mu.Unlock()
		}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{})

		result, err := h.Publish(ctx, publishCommand("https://make.com/public/shared-scenario/mine", "Mine"))
		require.NoError(t, err)
		assert.Equal(t, 2, result.Attempts)
		assert.Equal(t, "2", result.ScenarioID)
		assert.Len(t, store.templates, 2)
	})

	t.Run("Should detect a duplicate introduced by a concurrent writer", func(t *testing.T) {
		store := &memoryStore{}
		url := "https://make.com/public/shared-scenario/same"
		raced := false
		store.beforeWrite = func(s *memoryStore) {
			if raced {
				return
			}
			raced = true
			s.mu.Lock()
			s.templates = append(s.templates, template.Template{ID: "1", Slug: "same", MakeScenarioID: "same", MakeScenarioURL: url})
			s.version++
			s.mu.Unlock()
		}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{})

		_, err := h.Publish(ctx, publishCommand(url, "Same"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateSubmission))
		assert.Len(t, store.templates, 1)
	})

	t.Run("Should return a retryable conflict when attempts are exhausted", func(t *testing.T) {
		store := &memoryStore{}
		store.beforeWrite = func(s *memoryStore) {
			s.mu.Lock()
			s.version++
			s.mu.Unlock()
		}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{}, WithMaxAttempts(2))

		_, err := h.Publish(ctx, publishCommand("https://make.com/public/shared-scenario/busy", "Busy"))
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.CodeVersionConflict, appErr.Code)
		assert.True(t, appErr.Retryable)
		assert.ErrorIs(t, err, ports.ErrVersionConflict)
	})

	t.Run("Should run side effects after a committed write and survive mirror failure", func(t *testing.T) {
		store := &memoryStore{}
		mirror := &recordingMirror{err: errors.New("mirror down")}
		publisher := &recordingPublisher{}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{},
			WithMirror(mirror), WithEventPublisher(publisher))

		cmd := publishCommand("https://make.com/public/shared-scenario/side", "Side")
		cmd.SubmittedBy = "user-1"
		result, err := h.Publish(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, "1", result.ScenarioID)

		require.Len(t, publisher.events, 1)
		assert.Equal(t, events.EventTypeTemplatePublished, publisher.events[0].GetEventType())
		assert.Equal(t, "user-1", store.templates[0].SubmittedBy)
	})

	t.Run("Should wrap store read failures", func(t *testing.T) {
		store := &memoryStore{readErr: errors.New("boom")}
		h := NewPublishScenarioHandler(store, gallery, nopLogger{})

		_, err := h.Publish(ctx, publishCommand("https://make.com/public/shared-scenario/r", "R"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreRead))
		assert.Equal(t, 500, apperrors.GetAppError(err).HTTPStatus)
	})
}
