package queries

import (
	"strconv"
	"strings"

	"gallery-backend/domain/template"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"
)

// ListTemplatesQuery searches the published catalog
type ListTemplatesQuery struct {
	Query      string
	Categories []string
	Pagination common.PaginationParams
}

// Validate implements bus.Query
func (q ListTemplatesQuery) Validate() error {
	if q.Pagination.Page < 1 || q.Pagination.PageSize < 1 {
		return apperrors.NewValidationError("page and page_size must be positive")
	}
	return nil
}

// CacheKey identifies the result set
func (q ListTemplatesQuery) CacheKey() string {
	return strings.ToLower(q.Query) + "|" + strings.Join(q.Categories, ",") +
		"|" + strconv.Itoa(q.Pagination.Page) + "|" + strconv.Itoa(q.Pagination.PageSize)
}

// ListTemplatesResult is one page of search results
type ListTemplatesResult struct {
	Templates  []template.Template    `json:"templates"`
	Pagination *common.PaginationInfo `json:"pagination"`
}

// GetTemplateQuery loads one template by slug
type GetTemplateQuery struct {
	Slug string
}

// Validate implements bus.Query
func (q GetTemplateQuery) Validate() error {
	if strings.TrimSpace(q.Slug) == "" {
		return apperrors.NewValidationError("slug is required")
	}
	return nil
}

// CacheKey implements bus.CacheKeyer
func (q GetTemplateQuery) CacheKey() string { return q.Slug }

// TemplateDetail is a template with its detail page extras
type TemplateDetail struct {
	Template     template.Template   `json:"template"`
	Related      []template.Template `json:"related"`
	CanonicalURL string              `json:"canonicalUrl"`
}

// ListCategoriesQuery counts templates per category
type ListCategoriesQuery struct{}

// Validate implements bus.Query
func (ListCategoriesQuery) Validate() error { return nil }

// CacheKey implements bus.CacheKeyer
func (ListCategoriesQuery) CacheKey() string { return "all" }

// ListUserTemplatesQuery lists the templates a user submitted
type ListUserTemplatesQuery struct {
	UserID string
}

// Validate implements bus.Query
func (q ListUserTemplatesQuery) Validate() error {
	if q.UserID == "" {
		return apperrors.NewUnauthorizedError("Authentication required")
	}
	return nil
}
