package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"gallery-backend/application/queries"
	querybus "gallery-backend/application/queries/bus"
	"gallery-backend/infrastructure/makecom"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogHandler serves read-only catalog endpoints
type CatalogHandler struct {
	queryBus   *querybus.QueryBus
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(queryBus *querybus.QueryBus, errHandler *apperrors.ErrorHandler, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{queryBus: queryBus, errHandler: errHandler, logger: logger}
}

// ListTemplates handles GET /api/templates?q=&category=
func (h *CatalogHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var categories []string
	for _, value := range params["category"] {
		for _, c := range strings.Split(value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListTemplatesQuery{
		Query:      strings.TrimSpace(params.Get("q")),
		Categories: categories,
		Pagination: common.ExtractPaginationParams(r),
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetTemplate handles GET /api/templates/{slug}
func (h *CatalogHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetTemplateQuery{Slug: chi.URLParam(r, "slug")})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListCategoriesQuery{})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"categories": result})
}

// ListUserTemplates handles GET /api/profile/templates
func (h *CatalogHandler) ListUserTemplates(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.GetUserID(r.Context())
	result, err := h.queryBus.Ask(r.Context(), queries.ListUserTemplatesQuery{UserID: userID})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"templates": result})
}

// ImageFetcher loads a proxied image
type ImageFetcher interface {
	Fetch(ctx context.Context, raw string) (*makecom.Image, error)
}

// ImageHandler serves GET /api/proxy-image
type ImageHandler struct {
	fetcher    ImageFetcher
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewImageHandler creates a new image proxy handler
func NewImageHandler(fetcher ImageFetcher, errHandler *apperrors.ErrorHandler, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{fetcher: fetcher, errHandler: errHandler, logger: logger}
}

// ProxyImage streams an allow-listed image
func (h *ImageHandler) ProxyImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("url is required").WithCode(apperrors.CodeInvalidURL))
		return
	}

	img, err := h.fetcher.Fetch(r.Context(), raw)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	defer img.Body.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		h.logger.Debug("Image copy interrupted", zap.String("url", raw), zap.Error(err))
	}
}
