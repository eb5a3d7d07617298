package handlers

import (
	"errors"
	"net/http"

	"gallery-backend/application/commands"
	"gallery-backend/application/commands/bus"
	"gallery-backend/pkg/common"
	apperrors "gallery-backend/pkg/errors"
	"gallery-backend/pkg/sanitize"
	"gallery-backend/pkg/utils"

	"go.uber.org/zap"
)

// PublishMessage is returned with every successful publish
const PublishMessage = "Scenario published successfully! It will appear on the site within 3 minutes."

// PublishHandler serves POST /api/publish
type PublishHandler struct {
	commandBus *bus.CommandBus
	sanitizer  *sanitize.Sanitizer
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(
	commandBus *bus.CommandBus,
	sanitizer *sanitize.Sanitizer,
	errHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *PublishHandler {
	return &PublishHandler{
		commandBus: commandBus,
		sanitizer:  sanitizer,
		errHandler: errHandler,
		logger:     logger,
	}
}

// PublishRequest is the final submit-form state, including any AI suggestions
type PublishRequest struct {
	MakeScenarioURL string `json:"makeScenarioUrl" validate:"required"`
	Title           string `json:"title" validate:"required_without=SuggestedTitle,max=200"`
	Description     string `json:"description" validate:"max=5000"`
	Instructions    string `json:"instructions,omitempty" validate:"max=10000"`
	Apps            string `json:"apps"`
	Category        string `json:"category"`
	IframeURL       string `json:"iframeUrl,omitempty"`
	ButtonURL       string `json:"buttonUrl,omitempty"`

	SuggestedTitle       string `json:"suggestedTitle,omitempty" validate:"max=200"`
	SuggestedDescription string `json:"suggestedDescription,omitempty" validate:"max=5000"`
	SuggestedCategory    string `json:"suggestedCategory,omitempty"`

	UseCase     string   `json:"useCase,omitempty" validate:"max=300"`
	Complexity  string   `json:"complexity,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`
	CreatedDate string   `json:"createdDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// PublishResponse is the success body of POST /api/publish
type PublishResponse struct {
	Success    bool   `json:"success"`
	ScenarioID string `json:"scenarioId"`
	Slug       string `json:"slug"`
	URL        string `json:"url"`
	Message    string `json:"message"`
}

// Publish handles POST /api/publish
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errHandler.Handle(w, r, invalidBody(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	cmd, err := h.command(r, req)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	published := result.(*commands.PublishResult)

	h.logger.Info("Scenario published",
		zap.String("id", published.ScenarioID),
		zap.String("slug", published.Slug),
		zap.Int("attempts", published.Attempts),
		zap.String("requestID", common.ExtractRequestID(r)),
	)

	common.RespondJSON(w, http.StatusOK, PublishResponse{
		Success:    true,
		ScenarioID: published.ScenarioID,
		Slug:       published.Slug,
		URL:        "/" + published.Slug,
		Message:    PublishMessage,
	})
}

// command sanitizes the request and applies AI suggestions over the
// submitted title, description and category.
func (h *PublishHandler) command(r *http.Request, req PublishRequest) (commands.PublishScenarioCommand, error) {
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
		return commands.PublishScenarioCommand{}, sanitizeError(err)
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = h.sanitizer.Text(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	submittedBy, _ := common.GetUserID(r.Context())

	return commands.PublishScenarioCommand{
		MakeScenarioURL: clean.MakeScenarioURL,
		Title:           firstNonEmpty(h.sanitizer.Text(req.SuggestedTitle), clean.Title),
		Description:     firstNonEmpty(h.sanitizer.Text(req.SuggestedDescription), clean.Description),
		Instructions:    clean.Instructions,
		Apps:            clean.Apps,
		Category:        firstNonEmpty(h.sanitizer.Text(req.SuggestedCategory), clean.Category),
		IframeURL:       clean.IframeURL,
		ButtonURL:       clean.ButtonURL,
		UseCase:         clean.UseCase,
		Complexity:      req.Complexity,
		Tags:            tags,
		CreatedDate:     req.CreatedDate,
		SubmittedBy:     submittedBy,
	}, nil
}

func sanitizeError(err error) error {
	var fieldErr *sanitize.FieldError
	if !errors.As(err, &fieldErr) {
		return apperrors.NewValidationError(err.Error())
	}
	return apperrors.NewValidationError("Invalid "+fieldErr.Field+": "+fieldErr.Err.Error()).
		WithCode(apperrors.CodeInvalidURL).
		WithDetail("field", fieldErr.Field)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
