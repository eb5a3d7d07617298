package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"
	"gallery-backend/infrastructure/persistence"

	gh "github.com/google/go-github/v66/github"
	"go.uber.org/zap"
)

// Config locates the templates document in a repository
type Config struct {
	Token  string
	Owner  string
	Repo   string
	Branch string
	Path   string
	// APIURL overrides https://api.github.com/ (tests, GitHub Enterprise)
	APIURL string
}

// Store is a DocumentStore over the GitHub contents API. The version token
// is the blob SHA, which the contents API requires for every update.
type Store struct {
	client *gh.Client
	cfg    Config
	logger *zap.Logger
}

// NewStore creates a GitHub-backed document store
func NewStore(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Store, error) {
	client := gh.NewClient(httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.APIURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = base
	}
	return &Store{client: client, cfg: cfg, logger: logger}, nil
}

// Read implements ports.DocumentStore. A missing document reads as empty
// with an empty version.
func (s *Store) Read(ctx context.Context) (ports.Snapshot, error) {
	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Path,
		&gh.RepositoryContentGetOptions{Ref: s.cfg.Branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ports.Snapshot{Templates: template.Collection{}}, nil
		}
		return ports.Snapshot{}, fmt.Errorf("get %s: %w", s.cfg.Path, err)
	}
	if file == nil {
		return ports.Snapshot{}, fmt.Errorf("%s is not a file", s.cfg.Path)
	}

	data, err := s.content(ctx, file)
	if err != nil {
		return ports.Snapshot{}, err
	}

	templates, err := persistence.DecodeDocument(data)
	if err != nil {
		return ports.Snapshot{}, err
	}

	return ports.Snapshot{Templates: templates, Version: file.GetSHA()}, nil
}

// content returns the file bytes. Files over 1MB come back without inline
// content and are read through the blob API.
func (s *Store) content(ctx context.Context, file *gh.RepositoryContent) ([]byte, error) {
	if file.GetEncoding() == "none" {
		data, _, err := s.client.Git.GetBlobRaw(ctx, s.cfg.Owner, s.cfg.Repo, file.GetSHA())
		if err != nil {
			return nil, fmt.Errorf("get blob %s: %w", file.GetSHA(), err)
		}
		return data, nil
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.cfg.Path, err)
	}
	return []byte(content), nil
}

// Write implements ports.DocumentStore
func (s *Store) Write(ctx context.Context, templates template.Collection, expectedVersion, message string) (string, error) {
	data, err := persistence.EncodeDocument(templates)
	if err != nil {
		return "", err
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: data,
		Branch:  gh.String(s.cfg.Branch),
	}

	var result *gh.RepositoryContentResponse
	if expectedVersion == "" {
		result, _, err = s.client.Repositories.CreateFile(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Path, opts)
	} else {
		opts.SHA = gh.String(expectedVersion)
		result, _, err = s.client.Repositories.UpdateFile(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Path, opts)
	}
	if err != nil {
		if isConflict(err, expectedVersion) {
			s.logger.Info("Templates document changed since read",
				zap.String("path", s.cfg.Path),
				zap.String("expectedVersion", expectedVersion),
			)
			return "", ports.ErrVersionConflict
		}
		return "", fmt.Errorf("commit %s: %w", s.cfg.Path, err)
	}

	version := result.GetContent().GetSHA()
	s.logger.Info("Templates document committed",
		zap.String("path", s.cfg.Path),
		zap.String("version", version),
		zap.String("commit", result.Commit.GetSHA()),
		zap.Int("templates", len(templates)),
	)
	return version, nil
}

// isConflict reports a stale SHA. GitHub answers 409 for a mismatched SHA
// and 422 when a create races an existing file.
func isConflict(err error, expectedVersion string) bool {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	switch ghErr.Response.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		return expectedVersion == ""
	}
	return false
}

var _ ports.DocumentStore = (*Store)(nil)
