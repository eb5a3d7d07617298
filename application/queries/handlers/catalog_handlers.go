package handlers

import (
	"context"
	"fmt"
	"strings"

	"gallery-backend/application/ports"
	"gallery-backend/application/queries"
	"gallery-backend/application/queries/bus"
	domainconfig "gallery-backend/domain/config"
	"gallery-backend/domain/template"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"
)

// CatalogHandler answers catalog reads from the document store
type CatalogHandler struct {
	store   ports.DocumentStore
	gallery *domainconfig.GalleryConfig
	siteURL string
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(store ports.DocumentStore, gallery *domainconfig.GalleryConfig, siteURL string) *CatalogHandler {
	return &CatalogHandler{
		store:   store,
		gallery: gallery,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

func (h *CatalogHandler) load(ctx context.Context) (template.Collection, error) {
	snap, err := h.store.Read(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError("read", err).WithCode(apperrors.CodeStoreRead)
	}
	return snap.Templates, nil
}

// ListTemplates returns one page of search results
func (h *CatalogHandler) ListTemplates(ctx context.Context, q queries.ListTemplatesQuery) (*queries.ListTemplatesResult, error) {
	all, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	matched := all.Search(template.Filter{Query: q.Query, Categories: q.Categories})
	start, end := q.Pagination.Bounds(len(matched))

	page := make([]template.Template, end-start)
	copy(page, matched[start:end])

	return &queries.ListTemplatesResult{
		Templates:  page,
		Pagination: common.BuildPaginationMeta(q.Pagination.Page, q.Pagination.PageSize, len(matched)),
	}, nil
}

// GetTemplate returns a template with related templates and its canonical URL
func (h *CatalogHandler) GetTemplate(ctx context.Context, q queries.GetTemplateQuery) (*queries.TemplateDetail, error) {
	all, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	t, found := all.BySlug(q.Slug)
	if !found {
		return nil, apperrors.NewNotFoundError("Template")
	}

	return &queries.TemplateDetail{
		Template:     t,
		Related:      all.Related(t, h.gallery.RelatedLimit),
		CanonicalURL: h.siteURL + "/template/" + t.Slug,
	}, nil
}

// ListCategories counts templates per category
func (h *CatalogHandler) ListCategories(ctx context.Context, _ queries.ListCategoriesQuery) ([]template.CategoryCount, error) {
	all, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	return all.Categories(), nil
}

// Handle implements bus.QueryHandler for every catalog query
func (h *CatalogHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.ListTemplatesQuery:
		return h.ListTemplates(ctx, q)
	case queries.GetTemplateQuery:
		return h.GetTemplate(ctx, q)
	case queries.ListCategoriesQuery:
		return h.ListCategories(ctx, q)
	default:
		return nil, fmt.Errorf("invalid query type %T", query)
	}
}

// UserTemplatesHandler reads a user's submissions from the mirror
type UserTemplatesHandler struct {
	mirror ports.TemplateMirror
}

// NewUserTemplatesHandler creates the handler. mirror may be nil when no
// mirror is configured.
func NewUserTemplatesHandler(mirror ports.TemplateMirror) *UserTemplatesHandler {
	return &UserTemplatesHandler{mirror: mirror}
}

// Handle implements bus.QueryHandler
func (h *UserTemplatesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListUserTemplatesQuery)
	if !ok {
		return nil, fmt.Errorf("invalid query type %T", query)
	}
	if h.mirror == nil {
		return nil, apperrors.NewUnavailableError("template mirror")
	}

	rows, err := h.mirror.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, apperrors.NewStoreError("mirror read", err)
	}

	out := make([]template.Template, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Template)
	}
	return out, nil
}
