package handlers

import (
	"net/http"
	"strings"

	"gallery-backend/application/ports"
	"gallery-backend/application/queries"
	querybus "gallery-backend/application/queries/bus"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/sanitize"

	"go.uber.org/zap"
)

// ScenarioHandler serves the submit-form pipeline: scrape, enhance, validate
type ScenarioHandler struct {
	queryBus   *querybus.QueryBus
	sanitizer  *sanitize.Sanitizer
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(
	queryBus *querybus.QueryBus,
	sanitizer *sanitize.Sanitizer,
	errHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *ScenarioHandler {
	return &ScenarioHandler{
		queryBus:   queryBus,
		sanitizer:  sanitizer,
		errHandler: errHandler,
		logger:     logger,
	}
}

// ScrapeRequest is the body of POST /api/scrape
type ScrapeRequest struct {
	MakeScenarioURL string `json:"makeScenarioUrl"`
	Enhance         bool   `json:"enhance,omitempty"`
}

// ScrapeResponse is the success body of POST /api/scrape
type ScrapeResponse struct {
	Success bool                    `json:"success"`
	Data    *ports.ScenarioMetadata `json:"data"`
	Message string                  `json:"message"`
}

// Scrape handles POST /api/scrape
func (h *ScenarioHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errHandler.Handle(w, r, invalidBody(err))
		return
	}

	scenarioURL := strings.TrimSpace(req.MakeScenarioURL)
	if scenarioURL != "" {
		safe, err := h.sanitizer.ScenarioURL(scenarioURL)
		if err != nil {
			h.errHandler.Handle(w, r, sanitizeError(err))
			return
		}
		scenarioURL = safe
	}

	result, err := h.queryBus.Ask(r.Context(), queries.FetchScenarioQuery{
		URL:     scenarioURL,
		Enhance: req.Enhance,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, ScrapeResponse{
		Success: true,
		Data:    result.(*ports.ScenarioMetadata),
		Message: "Scenario data extracted successfully",
	})
}

// EnhanceRequest is the body of POST /api/enhance-metadata
type EnhanceRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Instructions string `json:"instructions,omitempty"`
	Apps         string `json:"apps"`
}

// EnhanceMetadata handles POST /api/enhance-metadata. Once the body is
// valid the response is always 200.
func (h *ScenarioHandler) EnhanceMetadata(w http.ResponseWriter, r *http.Request) {
	var req EnhanceRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errHandler.Handle(w, r, invalidBody(err))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.EnhanceMetadataQuery{
		Title:        h.sanitizer.Text(req.Title),
		Description:  h.sanitizer.Text(req.Description),
		Instructions: h.sanitizer.Text(req.Instructions),
		Apps:         h.sanitizer.Text(req.Apps),
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			h.errHandler.Handle(w, r, err)
			return
		}
		h.logger.Error("Enhancement failed outside the handler, using fallback", zap.Error(err))
		result = ports.FallbackEnhancement()
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ValidateRequest is the body of POST /api/validate. Every field is
// sanitized; title, description, apps and category are reviewed.
type ValidateRequest struct {
	MakeScenarioURL string `json:"makeScenarioUrl"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Instructions    string `json:"instructions,omitempty"`
	Apps            string `json:"apps"`
	Category        string `json:"category"`
	UseCase         string `json:"useCase,omitempty"`
	IframeURL       string `json:"iframeUrl,omitempty"`
	ButtonURL       string `json:"buttonUrl,omitempty"`
}

// validateErrorResponse adds the validation verdict to error bodies
type validateErrorResponse struct {
	apperrors.ErrorResponse
	IsValid bool     `json:"isValid"`
	Issues  []string `json:"issues,omitempty"`
}

// Validate handles POST /api/validate
func (h *ScenarioHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.validateError(w, r, invalidBody(err))
		return
	}

	clean, err := h.sanitizer.ScenarioData(sanitize.ScenarioData{
		MakeScenarioURL: req.MakeScenarioURL,
		Title:           req.Title,
		Description:     req.Description,
		Instructions:    req.Instructions,
		Apps:            req.Apps,
		Category:        req.Category,
		UseCase:         req.UseCase,
		IframeURL:       req.IframeURL,
		ButtonURL:       req.ButtonURL,
	})
	if err != nil {
		h.validateError(w, r, sanitizeError(err))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ValidateSubmissionQuery{
		Title:       clean.Title,
		Description: clean.Description,
		Apps:        clean.Apps,
		Category:    clean.Category,
	})
	if err != nil {
		h.validateError(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

func (h *ScenarioHandler) validateError(w http.ResponseWriter, r *http.Request, err error) {
	var issues []string
	if appErr := apperrors.GetAppError(err); appErr != nil {
		issues, _ = appErr.Details["issues"].([]string)
	}
	h.errHandler.HandleWith(w, r, err, func(resp apperrors.ErrorResponse) interface{} {
		return validateErrorResponse{ErrorResponse: resp, IsValid: false, Issues: issues}
	})
}

func invalidBody(err error) error {
	if err == common.ErrEmptyBody {
		return apperrors.NewValidationError("Request body is required")
	}
	return apperrors.NewValidationError("Invalid request body").WithCause(err)
}
