// Package supabase is the hosted TemplateMirror, a PostgREST table behind Supabase.
package supabase

import (
	"context"
	"fmt"

	"gallery-backend/application/ports"
	"gallery-backend/infrastructure/persistence"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// Mirror writes and reads templates through the Supabase REST API
// using the service-role key.
type Mirror struct {
	client *supa.Client
	logger *zap.Logger
}

// NewMirror creates a Supabase client for url with the service-role key
func NewMirror(url, serviceKey string, logger *zap.Logger) (*Mirror, error) {
	client, err := supa.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &Mirror{client: client, logger: logger}, nil
}

// Upsert implements ports.TemplateMirror
func (m *Mirror) Upsert(ctx context.Context, row ports.MirrorRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := persistence.NewMirrorRecord(row)
	_, _, err := m.client.From(persistence.MirrorTable).
		Upsert(rec, "id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("upserting template %s: %w", rec.ID, err)
	}
	m.logger.Debug("Mirrored template", zap.String("id", rec.ID), zap.String("slug", rec.Slug))
	return nil
}

// ListByUser implements ports.TemplateMirror, newest first
func (m *Mirror) ListByUser(ctx context.Context, userID string) ([]ports.MirrorRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []persistence.MirrorRecord
	_, err := m.client.From(persistence.MirrorTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&records)
	if err != nil {
		return nil, fmt.Errorf("querying user templates: %w", err)
	}

	rows := make([]ports.MirrorRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Row())
	}
	return rows, nil
}

// Fingerprints implements ports.TemplateMirror
func (m *Mirror) Fingerprints(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []struct {
		ID          string `json:"id"`
		Fingerprint string `json:"fingerprint"`
	}
	_, err := m.client.From(persistence.MirrorTable).
		Select("id,fingerprint", "", false).
		ExecuteTo(&records)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}

	result := make(map[string]string, len(records))
	for _, rec := range records {
		result[rec.ID] = rec.Fingerprint
	}
	return result, nil
}
