// Package sqlite is a local TemplateMirror backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gallery-backend/application/ports"
	"gallery-backend/infrastructure/persistence"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// migration is one forward schema step
type migration struct {
	version     int
	description string
	stmt        string
}

var migrations = []migration{
	{
		version:     1,
		description: "templates mirror",
		stmt: `
CREATE TABLE IF NOT EXISTS templates (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    full_description TEXT NOT NULL DEFAULT '',
    preview_image TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    complexity TEXT NOT NULL,
    use_case TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    make_scenario_url TEXT NOT NULL DEFAULT '',
    make_scenario_id TEXT NOT NULL DEFAULT '',
    make_iframe_url TEXT NOT NULL DEFAULT '',
    make_apps TEXT NOT NULL DEFAULT '[]',
    submitted_by TEXT NOT NULL DEFAULT '',
    submitted_at TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    ai_enhanced BOOLEAN NOT NULL DEFAULT FALSE,
    user_id TEXT,
    fingerprint TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_templates_user ON templates(user_id, created_at);`,
	},
}

const versionSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL,
    description TEXT NOT NULL,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Mirror is a TemplateMirror over a SQLite file
type Mirror struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the mirror database at path and applies pending migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Mirror, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	m := &Mirror{db: db, logger: logger}
	if err := m.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Mirror) migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, versionSchema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	var current int
	if err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, mig := range migrations {
		if mig.version <= current {
			continue
		}
		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: %w", mig.version, err)
		}
		if _, err := tx.ExecContext(ctx, mig.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", mig.version, mig.description, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version, description) VALUES (?, ?)", mig.version, mig.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", mig.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", mig.version, err)
		}
		m.logger.Info("Applied mirror migration",
			zap.Int("version", mig.version),
			zap.String("description", mig.description))
	}
	return nil
}

// Close closes the database
func (m *Mirror) Close() error {
	return m.db.Close()
}

// Upsert implements ports.TemplateMirror
func (m *Mirror) Upsert(ctx context.Context, row ports.MirrorRow) error {
	rec := persistence.NewMirrorRecord(row)
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	apps, err := json.Marshal(rec.MakeApps)
	if err != nil {
		return fmt.Errorf("encoding apps: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO templates
		(id, slug, title, description, full_description, preview_image, category, tags,
		 complexity, use_case, created_at, make_scenario_url, make_scenario_id, make_iframe_url,
		 make_apps, submitted_by, submitted_at, status, ai_enhanced, user_id, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 slug = excluded.slug,
		 title = excluded.title,
		 description = excluded.description,
		 full_description = excluded.full_description,
		 preview_image = excluded.preview_image,
		 category = excluded.category,
		 tags = excluded.tags,
		 complexity = excluded.complexity,
		 use_case = excluded.use_case,
		 created_at = excluded.created_at,
		 make_scenario_url = excluded.make_scenario_url,
		 make_scenario_id = excluded.make_scenario_id,
		 make_iframe_url = excluded.make_iframe_url,
		 make_apps = excluded.make_apps,
		 submitted_by = excluded.submitted_by,
		 submitted_at = excluded.submitted_at,
		 status = excluded.status,
		 ai_enhanced = excluded.ai_enhanced,
		 user_id = excluded.user_id,
		 fingerprint = excluded.fingerprint`,
		rec.ID, rec.Slug, rec.Title, rec.Description, rec.FullDescription, rec.PreviewImage,
		rec.Category, string(tags), rec.Complexity, rec.UseCase, rec.CreatedAt,
		rec.MakeScenarioURL, rec.MakeScenarioID, rec.MakeIframeURL, string(apps),
		rec.SubmittedBy, rec.SubmittedAt, rec.Status, rec.AIEnhanced, rec.UserID, rec.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("upserting template %s: %w", rec.ID, err)
	}
	return nil
}

// ListByUser implements ports.TemplateMirror, newest first
func (m *Mirror) ListByUser(ctx context.Context, userID string) ([]ports.MirrorRow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, slug, title, description, full_description, preview_image, category, tags,
		       complexity, use_case, created_at, make_scenario_url, make_scenario_id, make_iframe_url,
		       make_apps, submitted_by, submitted_at, status, ai_enhanced, user_id, fingerprint
		FROM templates
		WHERE user_id = ?
		ORDER BY created_at DESC, submitted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user templates: %w", err)
	}
	defer rows.Close()

	result := []ports.MirrorRow{}
	for rows.Next() {
		var (
			rec        persistence.MirrorRecord
			tags, apps string
			user       sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Slug, &rec.Title, &rec.Description, &rec.FullDescription,
			&rec.PreviewImage, &rec.Category, &tags, &rec.Complexity, &rec.UseCase, &rec.CreatedAt,
			&rec.MakeScenarioURL, &rec.MakeScenarioID, &rec.MakeIframeURL, &apps,
			&rec.SubmittedBy, &rec.SubmittedAt, &rec.Status, &rec.AIEnhanced, &user, &rec.Fingerprint); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(apps), &rec.MakeApps); err != nil {
			return nil, fmt.Errorf("decoding apps of %s: %w", rec.ID, err)
		}
		if user.Valid {
			rec.UserID = &user.String
		}
		result = append(result, rec.Row())
	}
	return result, rows.Err()
}

// Fingerprints implements ports.TemplateMirror
func (m *Mirror) Fingerprints(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT id, fingerprint FROM templates")
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var id, fp string
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}
		result[id] = fp
	}
	return result, rows.Err()
}
